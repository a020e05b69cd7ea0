package models

import (
	"fmt"
	"time"
)

// BodyScan holds the three-angle reference capture used to approximate a
// user's physique. The front/side/back order is fixed: it drives both the
// guided capture sequence and the ordering of image parts in a generation
// request.
type BodyScan struct {
	Front *ImageFile `bson:"front,omitempty" json:"front,omitempty"`
	Side  *ImageFile `bson:"side,omitempty" json:"side,omitempty"`
	Back  *ImageFile `bson:"back,omitempty" json:"back,omitempty"`
}

// Complete reports whether all three angles have been captured.
func (s BodyScan) Complete() bool {
	return s.Front != nil && s.Side != nil && s.Back != nil
}

// BodyType is the user's self-reported silhouette category.
type BodyType string

const (
	BodyTypeRectangle        BodyType = "rectangle"
	BodyTypeTriangle         BodyType = "triangle"
	BodyTypeInvertedTriangle BodyType = "inverted_triangle"
	BodyTypeHourglass        BodyType = "hourglass"
	BodyTypeRound            BodyType = "round"
)

// ParseBodyType returns the matching BodyType, or "" for unknown/empty input.
func ParseBodyType(s string) BodyType {
	switch BodyType(s) {
	case BodyTypeRectangle, BodyTypeTriangle, BodyTypeInvertedTriangle, BodyTypeHourglass, BodyTypeRound:
		return BodyType(s)
	}
	return ""
}

// Pose selects the stance rendered in a generated image.
type Pose string

const (
	PoseStanding Pose = "standing"
	PoseWalking  Pose = "walking"
	PoseSitting  Pose = "sitting"
	PoseLeaning  Pose = "leaning"
)

// ParsePose returns the matching Pose, defaulting to standing.
func ParsePose(s string) Pose {
	switch Pose(s) {
	case PoseWalking, PoseSitting, PoseLeaning:
		return Pose(s)
	}
	return PoseStanding
}

// SavedOutfit is a generation result the user chose to keep.
type SavedOutfit struct {
	ID    string `bson:"id" json:"id"`
	Name  string `bson:"name" json:"name"`
	Image string `bson:"image" json:"image"` // base64-encoded
}

// NewOutfitID returns a unique, time-derived outfit identifier.
func NewOutfitID() string {
	return fmt.Sprintf("outfit_%d", time.Now().UnixNano())
}

// Profile is the durable record of a user's identity, measurements and
// saved results.
type Profile struct {
	Name         string        `bson:"name" json:"name"`
	FaceImage    *ImageFile    `bson:"face_image,omitempty" json:"face_image,omitempty"`
	BodyScan     BodyScan      `bson:"body_scan" json:"body_scan"`
	Height       string        `bson:"height" json:"height"`
	Weight       string        `bson:"weight" json:"weight"`
	BodyType     BodyType      `bson:"body_type,omitempty" json:"body_type,omitempty"`
	Chest        string        `bson:"chest,omitempty" json:"chest,omitempty"`
	Waist        string        `bson:"waist,omitempty" json:"waist,omitempty"`
	Hips         string        `bson:"hips,omitempty" json:"hips,omitempty"`
	SavedOutfits []SavedOutfit `bson:"saved_outfits" json:"saved_outfits"`
}

// GenerationReady reports whether the profile carries everything the
// generation pipeline requires: a name, a complete body scan, and the two
// mandatory measurements.
func (p *Profile) GenerationReady() bool {
	if p == nil {
		return false
	}
	return p.Name != "" && p.BodyScan.Complete() && p.Height != "" && p.Weight != ""
}

// AddOutfit returns a copy of p with o prepended to its saved outfits
// (newest first). The receiver is not mutated; the caller persists.
func AddOutfit(p Profile, o SavedOutfit) Profile {
	outfits := make([]SavedOutfit, 0, len(p.SavedOutfits)+1)
	outfits = append(outfits, o)
	outfits = append(outfits, p.SavedOutfits...)
	p.SavedOutfits = outfits
	return p
}

// RemoveOutfit returns a copy of p without the outfit identified by id.
// Unknown ids leave the list unchanged.
func RemoveOutfit(p Profile, id string) Profile {
	outfits := make([]SavedOutfit, 0, len(p.SavedOutfits))
	for _, o := range p.SavedOutfits {
		if o.ID != id {
			outfits = append(outfits, o)
		}
	}
	p.SavedOutfits = outfits
	return p
}
