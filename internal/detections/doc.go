// Package detections adapts per-frame detector output to the tracker.
//
// The wire format is JSON lines: an optional header
//
//	{"meta":{"width":1920,"height":1080,"fps":30,"frame_count":300}}
//
// followed by one record per frame
//
//	{"frame_id":0,"detections":[{"bbox":[x1,y1,x2,y2],"class":"receiver","confidence":0.91}]}
//
// A record {"frame_id":7,"error":"..."} marks a detector failure for that frame.
// Malformed lines and invalid detections are counted and dropped, never fatal.
package detections
