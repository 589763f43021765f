package domain

import "time"

// IdentityStatus toggles whether an identity may sign in.
type IdentityStatus string

const (
	StatusActive IdentityStatus = "active"
	StatusBanned IdentityStatus = "banned"
)

// Profile holds the non-privileged fields an identity may edit itself.
type Profile struct {
	Phone     string `json:"phone"      bson:"phone"`
	City      string `json:"city"       bson:"city"`
	Bio       string `json:"bio"        bson:"bio"`
	AvatarURL string `json:"avatar_url" bson:"avatar_url"`
}

// BusinessFields are the role-specific fields collected by an approval request
// and copied onto the identity when the request is approved. Buddy requests
// fill the first group, manager requests the second.
type BusinessFields struct {
	FullName    string   `json:"full_name"    bson:"full_name"`
	Languages   []string `json:"languages"    bson:"languages"`
	Experience  string   `json:"experience"   bson:"experience"`
	Specialties []string `json:"specialties"  bson:"specialties"`
	Area        string   `json:"area"         bson:"area"`
	IDNumber    string   `json:"id_number"    bson:"id_number"`

	BusinessName    string `json:"business_name"    bson:"business_name"`
	BusinessType    string `json:"business_type"    bson:"business_type"`
	TaxCode         string `json:"tax_code"         bson:"tax_code"`
	BusinessAddress string `json:"business_address" bson:"business_address"`
	LicenseURL      string `json:"license_url"      bson:"license_url"`
	Website         string `json:"website"          bson:"website"`
}

// Normalized returns a copy whose list fields are never nil, so stored
// records always carry [] rather than null.
func (b BusinessFields) Normalized() BusinessFields {
	out := b
	out.Languages = cloneStrings(b.Languages)
	out.Specialties = cloneStrings(b.Specialties)
	return out
}

// Identity models an authenticated actor.
type Identity struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	DisplayName  string         `json:"display_name"`
	PasswordHash string         `json:"-"`
	Provider     string         `json:"provider,omitempty"`
	Role         Role           `json:"role"`
	IsVerified   bool           `json:"is_verified"`
	Status       IdentityStatus `json:"status"`
	Profile      Profile        `json:"profile"`
	Business     BusinessFields `json:"business"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Snapshot flattens the identity into the field map mirrored by client
// sessions and carried by live change events.
func (i *Identity) Snapshot() map[string]any {
	b := i.Business.Normalized()
	return map[string]any{
		FieldID:          i.ID,
		FieldEmail:       i.Email,
		FieldDisplayName: i.DisplayName,
		FieldRole:        string(i.Role),
		FieldIsVerified:  i.IsVerified,
		FieldStatus:      string(i.Status),

		"phone":      i.Profile.Phone,
		"city":       i.Profile.City,
		"bio":        i.Profile.Bio,
		"avatar_url": i.Profile.AvatarURL,

		"full_name":        b.FullName,
		"languages":        b.Languages,
		"experience":       b.Experience,
		"specialties":      b.Specialties,
		"area":             b.Area,
		"id_number":        b.IDNumber,
		"business_name":    b.BusinessName,
		"business_type":    b.BusinessType,
		"tax_code":         b.TaxCode,
		"business_address": b.BusinessAddress,
		"license_url":      b.LicenseURL,
		"website":          b.Website,
	}
}

// Snapshot keys that code branches on.
const (
	FieldID          = "id"
	FieldEmail       = "email"
	FieldDisplayName = "display_name"
	FieldRole        = "role"
	FieldIsVerified  = "is_verified"
	FieldStatus      = "status"
)

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
