package store

import (
	"time"

	"github.com/fitmirrorlabs/fitmirror-backend/models"
)

// Schema history of the persisted profile record:
//
//	v0 — flat ordered "photos" list (up to three generic shots), no
//	     structured body scan, saved outfits may be absent entirely.
//	v1 — structured body_scan, but records written before the outfit
//	     gallery shipped still lack saved_outfits.
//	v2 — current: body_scan + saved_outfits always present.
const currentSchemaVersion = 2

// profileRecord is the persisted shape. It is a superset of every historical
// version so any stored document decodes into it; migrate normalizes it to
// the current version before it is turned into a models.Profile.
type profileRecord struct {
	UserID        string               `bson:"_id"`
	SchemaVersion int                  `bson:"schema_version"`
	Name          string               `bson:"name"`
	FaceImage     *models.ImageFile    `bson:"face_image,omitempty"`
	Photos        []models.ImageFile   `bson:"photos,omitempty"` // legacy v0 only
	BodyScan      models.BodyScan      `bson:"body_scan"`
	Height        string               `bson:"height"`
	Weight        string               `bson:"weight"`
	BodyType      string               `bson:"body_type,omitempty"`
	Chest         string               `bson:"chest,omitempty"`
	Waist         string               `bson:"waist,omitempty"`
	Hips          string               `bson:"hips,omitempty"`
	SavedOutfits  []models.SavedOutfit `bson:"saved_outfits,omitempty"`
	UpdatedAt     time.Time            `bson:"updated_at"`
}

// migrations[v] upgrades a record from version v to v+1.
var migrations = []func(*profileRecord){
	migratePhotosToBodyScan,
	migrateEnsureSavedOutfits,
}

// migrate upgrades rec in place to the current schema version. Running it on
// an already-current record is a no-op.
func migrate(rec *profileRecord) {
	for v := rec.SchemaVersion; v >= 0 && v < currentSchemaVersion; v++ {
		migrations[v](rec)
		rec.SchemaVersion = v + 1
	}
}

// migratePhotosToBodyScan reinterprets the legacy ordered photo list
// positionally as front/side/back. Missing positions stay nil.
func migratePhotosToBodyScan(rec *profileRecord) {
	slots := []**models.ImageFile{&rec.BodyScan.Front, &rec.BodyScan.Side, &rec.BodyScan.Back}
	for i, photo := range rec.Photos {
		if i >= len(slots) {
			break
		}
		if *slots[i] == nil {
			p := photo
			*slots[i] = &p
		}
	}
	rec.Photos = nil
}

// migrateEnsureSavedOutfits gives pre-gallery records an empty outfit list.
func migrateEnsureSavedOutfits(rec *profileRecord) {
	if rec.SavedOutfits == nil {
		rec.SavedOutfits = []models.SavedOutfit{}
	}
}

func toProfile(rec *profileRecord) *models.Profile {
	return &models.Profile{
		Name:         rec.Name,
		FaceImage:    rec.FaceImage,
		BodyScan:     rec.BodyScan,
		Height:       rec.Height,
		Weight:       rec.Weight,
		BodyType:     models.ParseBodyType(rec.BodyType),
		Chest:        rec.Chest,
		Waist:        rec.Waist,
		Hips:         rec.Hips,
		SavedOutfits: rec.SavedOutfits,
	}
}

func fromProfile(userID string, p *models.Profile) profileRecord {
	outfits := p.SavedOutfits
	if outfits == nil {
		outfits = []models.SavedOutfit{}
	}
	return profileRecord{
		UserID:        userID,
		SchemaVersion: currentSchemaVersion,
		Name:          p.Name,
		FaceImage:     p.FaceImage,
		BodyScan:      p.BodyScan,
		Height:        p.Height,
		Weight:        p.Weight,
		BodyType:      string(p.BodyType),
		Chest:         p.Chest,
		Waist:         p.Waist,
		Hips:          p.Hips,
		SavedOutfits:  outfits,
		UpdatedAt:     time.Now(),
	}
}
