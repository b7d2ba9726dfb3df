package openscore

// CoverageScheme is the coverage classification around a receiver
type CoverageScheme string

const (
	// CoverageNone means no defender within coverage radius
	CoverageNone CoverageScheme = "none"
	// CoverageMan means one defender shadows the receiver
	CoverageMan CoverageScheme = "man"
	// CoverageZone means nearby defenders are not locked on the receiver
	CoverageZone CoverageScheme = "zone"
)

// CoverageContext is what coverage heuristic sees about one receiver
type CoverageContext struct {
	Receiver Player
	// Defenders within coverage radius, nearest first
	Nearby []Neighbor
	// Nearest defender has this receiver as its own nearest receiver
	MutualNearest bool
}

// Policy is the functional form of the score components. Every method returns value in [0, 1]
type Policy interface {
	Distance(nearest float64) float64
	Velocity(closingSpeed float64) float64
	// Separation gets distance to second nearest defender; ok is false with a single defender
	Separation(second float64, ok bool) float64
	Coverage(ctx CoverageContext) (float64, CoverageScheme)
}

// DefaultPolicy implements saturating distance terms, linear closing speed term and
// count based coverage with man/zone correction.
type DefaultPolicy struct {
	cfg Config
}

// NewDefaultPolicy creates policy driven by engine config
func NewDefaultPolicy(cfg Config) DefaultPolicy {
	return DefaultPolicy{cfg: cfg}
}

// saturate maps [0, limit] to [0, 1] with decreasing slope, 1 at and past limit
func saturate(value, limit float64) float64 {
	if value <= 0 {
		return 0
	}
	x := value / limit
	if x >= 1 {
		return 1
	}
	return 1 - (1-x)*(1-x)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// Distance is non-decreasing in distance to nearest defender
func (p DefaultPolicy) Distance(nearest float64) float64 {
	return saturate(nearest, p.cfg.MaxDistance)
}

// Velocity is 0.5 for standing defender, lower when closing and higher when moving away
func (p DefaultPolicy) Velocity(closingSpeed float64) float64 {
	return clamp01(0.5 - closingSpeed/(2*p.cfg.MaxClosingSpeed))
}

// Separation rewards receivers which are not double covered
func (p DefaultPolicy) Separation(second float64, ok bool) float64 {
	if !ok {
		return 1
	}
	return saturate(second, p.cfg.SeparationDistance)
}

var coverageByCount = [...]float64{1.0, 0.7, 0.4, 0.2}

// Coverage is based on count of defenders within radius corrected by man/zone guess
func (p DefaultPolicy) Coverage(ctx CoverageContext) (float64, CoverageScheme) {
	count := len(ctx.Nearby)
	if count == 0 {
		return coverageByCount[0], CoverageNone
	}
	if count >= len(coverageByCount) {
		count = len(coverageByCount) - 1
	}
	base := coverageByCount[count]
	if p.isMan(ctx) {
		return clamp01(base - p.cfg.ManPenalty), CoverageMan
	}
	return clamp01(base + p.cfg.ZoneBonus), CoverageZone
}

// isMan: nearest defender is inside radius, mutually nearest and runs along with the receiver
func (p DefaultPolicy) isMan(ctx CoverageContext) bool {
	if len(ctx.Nearby) == 0 || !ctx.MutualNearest {
		return false
	}
	defender := ctx.Nearby[0]
	rs := ctx.Receiver.Velocity.Norm()
	ds := defender.Velocity.Norm()
	if rs == 0 || ds == 0 || rs < p.cfg.MinHeadingSpeed || ds < p.cfg.MinHeadingSpeed {
		return false
	}
	cos := ctx.Receiver.Velocity.Dot(defender.Velocity) / (rs * ds)
	return cos >= p.cfg.ManAlignment
}
