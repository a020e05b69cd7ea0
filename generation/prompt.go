package generation

import (
	"fmt"
	"strings"

	"github.com/fitmirrorlabs/fitmirror-backend/models"
)

// buildInstruction writes the textual part of the request. The reference
// images precede it, so it refers to them by their fixed order: face (when
// present), then front/side/back body shots, then the garment.
func buildInstruction(profile *models.Profile, pose models.Pose) string {
	var b strings.Builder

	b.WriteString("You are given reference photos of a person")
	if profile.FaceImage != nil {
		b.WriteString(" (a face photo first, then body shots from the front, side and back)")
	} else {
		b.WriteString(" (body shots from the front, side and back)")
	}
	b.WriteString(" followed by a photo of a garment.\n\n")

	b.WriteString("Analyze the person's body structure, proportions and posture from the reference photos. ")
	b.WriteString("Do not copy or trace the reference photos.\n")
	b.WriteString("Reconstruct an entirely new photograph of this person instead of editing any of the inputs.\n")
	b.WriteString("Dress the person in the garment shown, draping it realistically for their build. ")
	b.WriteString("If the fit would be loose, tight or otherwise imperfect, show that honestly rather than idealizing it.\n")
	fmt.Fprintf(&b, "Render the person %s against a plain neutral background.\n\n", poseDescription(pose))

	fmt.Fprintf(&b, "Person details: height %s cm, weight %s kg", profile.Height, profile.Weight)
	if profile.BodyType != "" {
		fmt.Fprintf(&b, ", %s body type", strings.ReplaceAll(string(profile.BodyType), "_", " "))
	}
	if profile.Chest != "" || profile.Waist != "" || profile.Hips != "" {
		fmt.Fprintf(&b, "; measurements chest %s, waist %s, hips %s",
			orUnknown(profile.Chest), orUnknown(profile.Waist), orUnknown(profile.Hips))
	}
	b.WriteString(".")

	return b.String()
}

func poseDescription(pose models.Pose) string {
	switch pose {
	case models.PoseWalking:
		return "mid-stride, walking toward the camera"
	case models.PoseSitting:
		return "seated on a simple stool"
	case models.PoseLeaning:
		return "leaning casually against a wall"
	default:
		return "standing upright, facing the camera"
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
