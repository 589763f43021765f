package handler

import (
	"github.com/vivulocal/marketplace-api/internal/core/ports"
)

// --- Request → Service input ---

func toSubmitInput(req submitRequest, requesterID string) ports.SubmitRequestInput {
	return ports.SubmitRequestInput{
		RequesterID:     requesterID,
		Type:            req.Type,
		Status:          req.Status,
		Email:           req.Email,
		Phone:           req.Phone,
		Note:            req.Note,
		FullName:        req.FullName,
		Languages:       req.Languages,
		Experience:      req.Experience,
		Specialties:     req.Specialties,
		Area:            req.Area,
		IDNumber:        req.IDNumber,
		BusinessName:    req.BusinessName,
		BusinessType:    req.BusinessType,
		TaxCode:         req.TaxCode,
		BusinessAddress: req.BusinessAddress,
		LicenseURL:      req.LicenseURL,
		Website:         req.Website,
	}
}

func toDecideInput(req decisionRequest, requestID, adminID string) ports.DecideInput {
	return ports.DecideInput{
		RequestID:        requestID,
		TargetIdentityID: req.UserID,
		RequestedType:    req.Type,
		Decision:         req.Decision,
		AdminID:          adminID,
		Reason:           req.Reason,
	}
}

func toUpdateProfileInput(req updateProfileRequest) ports.UpdateProfileInput {
	return ports.UpdateProfileInput{
		DisplayName: req.DisplayName,
		Phone:       req.Phone,
		City:        req.City,
		Bio:         req.Bio,
		AvatarURL:   req.AvatarURL,
	}
}
