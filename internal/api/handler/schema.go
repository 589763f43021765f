package handler

import (
	"github.com/vivulocal/marketplace-api/internal/core/domain"
	"github.com/vivulocal/marketplace-api/internal/core/guard"
)

// --- Auth ---

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string           `json:"token,omitempty"`
	User  *domain.Identity `json:"user,omitempty"`
}

// --- Profile ---

type updateProfileRequest struct {
	DisplayName string `json:"display_name"`
	Phone       string `json:"phone"`
	City        string `json:"city"`
	Bio         string `json:"bio"`
	AvatarURL   string `json:"avatar_url"`
}

// --- Approval requests ---

type submitRequest struct {
	Type   string `json:"type"`
	Status string `json:"status"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	Note   string `json:"note"`

	FullName    string   `json:"full_name"`
	Languages   []string `json:"languages"`
	Experience  string   `json:"experience"`
	Specialties []string `json:"specialties"`
	Area        string   `json:"area"`
	IDNumber    string   `json:"id_number"`

	BusinessName    string `json:"business_name"`
	BusinessType    string `json:"business_type"`
	TaxCode         string `json:"tax_code"`
	BusinessAddress string `json:"business_address"`
	LicenseURL      string `json:"license_url"`
	Website         string `json:"website"`
}

type decisionRequest struct {
	Decision string `json:"decision"  validate:"required,oneof=approved rejected"`
	UserID   string `json:"user_id"   validate:"required"`
	Type     string `json:"type"      validate:"required,oneof=buddy manager"`
	Reason   string `json:"reason"    validate:"max=1000"`
}

type decisionResponse struct {
	Request        *domain.ApprovalRequest   `json:"request"`
	User           *domain.Identity          `json:"user,omitempty"`
	Resumed        bool                      `json:"resumed"`
	AlreadyDecided bool                      `json:"already_decided"`
	Pending        []*domain.ApprovalRequest `json:"pending"`
}

type listResponse struct {
	Items []*domain.ApprovalRequest `json:"items"`
}

// --- Live and navigation ---

// viewEvent is one evaluation of a page for the current viewer.
type viewEvent struct {
	Route   string         `json:"route"`
	Loading bool           `json:"loading"`
	Session map[string]any `json:"session"`
	Outcome guard.Outcome  `json:"outcome"`
}

// --- Uploads and assistant ---

type uploadResponse struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Prompt string `json:"prompt" validate:"required,max=4000"`
}

type chatResponse struct {
	Text  string `json:"text"`
	Model string `json:"model"`
}
