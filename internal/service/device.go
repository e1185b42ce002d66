package service

import (
	"context"
	"strings"
	"time"

	apperrors "github.com/fcf-tessere/unlock-server-go/internal/errors"
	"github.com/fcf-tessere/unlock-server-go/internal/model"
	"github.com/fcf-tessere/unlock-server-go/internal/repository"
)

type DeviceStatus struct {
	IsUnlocked bool       `json:"isUnlocked"`
	Code       string     `json:"code,omitempty"`
	PaidAt     *time.Time `json:"paidAt,omitempty"`
}

type DeviceService struct {
	deviceRepo repository.PaidDeviceRepository
	codeRepo   repository.UnlockCodeRepository
}

func NewDeviceService(deviceRepo repository.PaidDeviceRepository, codeRepo repository.UnlockCodeRepository) *DeviceService {
	return &DeviceService{
		deviceRepo: deviceRepo,
		codeRepo:   codeRepo,
	}
}

// Status reports whether a device has paid. A device whose code was
// deactivated (refund or admin) is no longer unlocked; an exhausted code
// still is.
func (s *DeviceService) Status(ctx context.Context, deviceID string) (*DeviceStatus, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil, apperrors.MissingRequired("deviceId")
	}

	pd, err := s.deviceRepo.FindByDeviceID(ctx, deviceID)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	if pd == nil {
		return &DeviceStatus{IsUnlocked: false}, nil
	}

	uc, err := s.codeRepo.FindByCode(ctx, pd.UnlockCode)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	if uc == nil || uc.State() == model.CodeStateDeactivated {
		return &DeviceStatus{IsUnlocked: false}, nil
	}

	paidAt := pd.PaidAt
	return &DeviceStatus{
		IsUnlocked: true,
		Code:       pd.UnlockCode,
		PaidAt:     &paidAt,
	}, nil
}
