package openscore

import (
	"sort"

	"github.com/LdDl/openscore-go/kinematics"
	"github.com/LdDl/openscore-go/mot"
)

// Player is a tracked player in field coordinates
type Player struct {
	TrackID  int
	Class    mot.ObjectClass
	Position kinematics.Vector
	Velocity kinematics.Vector
}

// Scene is everything the engine needs to score one frame
type Scene struct {
	FrameID   int
	Receivers []Player
	Defenders []Player
}

// Neighbor is a defender seen from a receiver
type Neighbor struct {
	Player
	Distance float64
}

// BuildScene selects confirmed tracks observed in the frame and places them on the field.
// Velocities are looked up by track id, missing entries mean standing still.
func (c Config) BuildScene(frameID int, snapshots []mot.TrackSnapshot, kin kinematics.Config, velocities map[int]kinematics.Vector) Scene {
	scene := Scene{
		FrameID:   frameID,
		Receivers: make([]Player, 0),
		Defenders: make([]Player, 0),
	}
	for _, snap := range snapshots {
		if !snap.Visible() {
			continue
		}
		player := Player{
			TrackID:  snap.TrackID,
			Class:    snap.Class,
			Position: kin.FieldPosition(snap.BBox),
			Velocity: velocities[snap.TrackID],
		}
		switch {
		case c.IsReceiver(snap.Class):
			scene.Receivers = append(scene.Receivers, player)
		case c.IsDefender(snap.Class):
			scene.Defenders = append(scene.Defenders, player)
		}
	}
	sort.Slice(scene.Receivers, func(i, j int) bool { return scene.Receivers[i].TrackID < scene.Receivers[j].TrackID })
	sort.Slice(scene.Defenders, func(i, j int) bool { return scene.Defenders[i].TrackID < scene.Defenders[j].TrackID })
	return scene
}

// neighbors returns defenders sorted by distance to the receiver, ties by track id
func neighbors(receiver Player, defenders []Player) []Neighbor {
	result := make([]Neighbor, 0, len(defenders))
	for _, d := range defenders {
		result = append(result, Neighbor{Player: d, Distance: d.Position.Sub(receiver.Position).Norm()})
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Distance != result[j].Distance {
			return result[i].Distance < result[j].Distance
		}
		return result[i].TrackID < result[j].TrackID
	})
	return result
}

// nearestReceiver returns track id of receiver closest to the defender, ties by track id
func nearestReceiver(defender Player, receivers []Player) int {
	bestID := -1
	bestDistance := 0.0
	for _, r := range receivers {
		d := r.Position.Sub(defender.Position).Norm()
		if bestID < 0 || d < bestDistance || (d == bestDistance && r.TrackID < bestID) {
			bestID = r.TrackID
			bestDistance = d
		}
	}
	return bestID
}

// ClosingSpeed returns speed of defender approaching receiver: relative velocity projected
// on the defender to receiver direction. Positive means closing, negative means moving away.
func ClosingSpeed(receiver, defender Player) float64 {
	direction := receiver.Position.Sub(defender.Position).Unit()
	if direction.IsZero() {
		return 0
	}
	relative := defender.Velocity.Sub(receiver.Velocity)
	return relative.Dot(direction)
}
