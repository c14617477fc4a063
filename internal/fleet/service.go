package fleet

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/apperr"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/dates"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InstallInput struct {
	DeviceID        uint
	InstitutionID   uint
	InstallDate     time.Time
	UninstallDate   *time.Time
	ConnectedCoreID *uint
}

// History cihazın kurulum, bakım ve arıza geçmişi; hepsi tarihe göre yeniden eskiye.
type History struct {
	Device        models.DeviceRecord
	Current       *models.Installation
	Installations []models.Installation
	Maintenance   []models.Maintenance
	Faults        []models.Fault
}

func notFoundOr(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(format, args...)
	}
	return err
}

// keyTaken aynı doğal anahtarla başka bir kayıt varsa Conflict döner.
// İçe aktarma bu anahtarlarla eşleştirdiği için tekrar eden kayıt dışa/içe aktarmayı bozar.
func keyTaken(tx *gorm.DB, model any, exceptID uint, msg string, query string, args ...any) error {
	q := tx.Model(model).Where(query, args...)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return apperr.Conflict("%s", msg)
	}
	return nil
}

// CurrentPlacement açık kurulumu döner; yoksa nil.
// Birden fazla açık kurulum olmamalı, olursa en son kurulan seçilir.
func CurrentPlacement(ctx context.Context, db *gorm.DB, deviceID uint) (*models.Installation, error) {
	var inst models.Installation
	err := db.WithContext(ctx).
		Preload("Institution").
		Where("device_id = ? AND uninstall_date IS NULL", deviceID).
		Order("install_date DESC, id DESC").
		First(&inst).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Store("kurulum bilgisi alınamadı", err)
	}
	return &inst, nil
}

func DeviceHistory(ctx context.Context, db *gorm.DB, deviceID uint) (*History, error) {
	h := &History{}
	q := db.WithContext(ctx)

	if err := q.Preload("DeviceType").Preload("Institution").First(&h.Device, deviceID).Error; err != nil {
		return nil, apperr.Store("cihaz alınamadı", notFoundOr(err, "cihaz bulunamadı: %d", deviceID))
	}
	if err := q.Preload("Device.DeviceType").Preload("Institution").Preload("ConnectedCore").
		Where("device_id = ?", deviceID).
		Order("install_date DESC, id DESC").
		Find(&h.Installations).Error; err != nil {
		return nil, apperr.Store("kurulumlar alınamadı", err)
	}
	if err := q.Where("device_id = ?", deviceID).Order("date DESC, id DESC").Find(&h.Maintenance).Error; err != nil {
		return nil, apperr.Store("bakımlar alınamadı", err)
	}
	if err := q.Where("device_id = ?", deviceID).Order("fault_date DESC, id DESC").Find(&h.Faults).Error; err != nil {
		return nil, apperr.Store("arızalar alınamadı", err)
	}

	for i := range h.Installations {
		if h.Installations[i].IsOpen() {
			h.Current = &h.Installations[i]
			break
		}
	}
	return h, nil
}

// validateCore core_required cihaz tipleri için bağlı core cihazı kontrol eder.
func validateCore(tx *gorm.DB, device *models.DeviceRecord, coreID *uint) error {
	if coreID == nil {
		if device.DeviceType.CoreRequired {
			return apperr.Validation("%s için bağlı core cihaz zorunlu", device.SerialNumber)
		}
		return nil
	}
	if *coreID == device.ID {
		return apperr.Validation("cihaz kendisine core olarak bağlanamaz")
	}

	var core models.DeviceRecord
	if err := tx.Preload("DeviceType").First(&core, *coreID).Error; err != nil {
		return notFoundOr(err, "core cihaz bulunamadı: %d", *coreID)
	}
	if !core.DeviceType.IsCore {
		return apperr.Validation("%s bir core cihaz değil", core.SerialNumber)
	}
	return nil
}

// CreateInstallation yeni kurulum açar. Cihazın önceki açık kurulumu yeni kurulum
// tarihiyle kapatılır; böylece cihaz başına tek açık kurulum kalır.
func CreateInstallation(ctx context.Context, db *gorm.DB, in InstallInput) (*models.Installation, *models.Installation, error) {
	if in.InstallDate.IsZero() {
		return nil, nil, apperr.Validation("install_date zorunlu")
	}
	in.InstallDate = dates.Day(in.InstallDate)
	if in.UninstallDate != nil {
		u := dates.Day(*in.UninstallDate)
		if u.Before(in.InstallDate) {
			return nil, nil, apperr.Validation("uninstall_date kurulum tarihinden önce olamaz")
		}
		in.UninstallDate = &u
	}

	var created, closed *models.Installation
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var device models.DeviceRecord
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Preload("DeviceType").First(&device, in.DeviceID).Error; err != nil {
			return notFoundOr(err, "cihaz bulunamadı: %d", in.DeviceID)
		}
		var inst models.Institution
		if err := tx.First(&inst, in.InstitutionID).Error; err != nil {
			return notFoundOr(err, "kurum bulunamadı: %d", in.InstitutionID)
		}
		if err := validateCore(tx, &device, in.ConnectedCoreID); err != nil {
			return err
		}

		if in.UninstallDate == nil {
			var prior models.Installation
			err := tx.Where("device_id = ? AND uninstall_date IS NULL", device.ID).First(&prior).Error
			switch {
			case err == nil:
				if !in.InstallDate.After(dates.Day(prior.InstallDate)) {
					return apperr.Conflict("%s zaten %s tarihinden beri kurulu; yeni kurulum bu tarihten sonra olmalı",
						device.SerialNumber, dates.Format(prior.InstallDate))
				}
				end := in.InstallDate
				if err := tx.Model(&prior).Update("uninstall_date", end).Error; err != nil {
					return err
				}
				prior.UninstallDate = &end
				closed = &prior
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return err
			}

			// Yedek konum bilgisini güncel tut
			if err := tx.Model(&device).Update("institution_id", inst.ID).Error; err != nil {
				return err
			}
		}

		if err := keyTaken(tx, &models.Installation{}, 0,
			"bu cihaz için "+dates.Format(in.InstallDate)+" tarihli kurulum zaten var",
			"device_id = ? AND install_date = ?", device.ID, in.InstallDate); err != nil {
			return err
		}

		created = &models.Installation{
			DeviceID:        device.ID,
			InstitutionID:   inst.ID,
			InstallDate:     in.InstallDate,
			UninstallDate:   in.UninstallDate,
			ConnectedCoreID: in.ConnectedCoreID,
		}
		return tx.Omit(clause.Associations).Create(created).Error
	})
	if err != nil {
		return nil, nil, apperr.Store("kurulum kaydedilemedi", err)
	}
	return created, closed, nil
}

// Uninstall açık kurulumu kapatır.
func Uninstall(ctx context.Context, db *gorm.DB, installationID uint, date time.Time) (*models.Installation, error) {
	date = dates.Day(date)

	var inst models.Installation
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&inst, installationID).Error; err != nil {
			return notFoundOr(err, "kurulum bulunamadı: %d", installationID)
		}
		if !inst.IsOpen() {
			return apperr.Conflict("kurulum zaten kapatılmış")
		}
		if date.Before(dates.Day(inst.InstallDate)) {
			return apperr.Validation("uninstall_date kurulum tarihinden önce olamaz")
		}
		inst.UninstallDate = &date
		return tx.Model(&inst).Update("uninstall_date", date).Error
	})
	if err != nil {
		return nil, apperr.Store("kurulum güncellenemedi", err)
	}
	return &inst, nil
}

type DeviceInput struct {
	DeviceTypeID  uint
	SerialNumber  string
	InstitutionID *uint
}

func CreateDevice(ctx context.Context, db *gorm.DB, in DeviceInput) (*models.DeviceRecord, error) {
	in.SerialNumber = strings.TrimSpace(in.SerialNumber)
	if in.SerialNumber == "" || in.DeviceTypeID == 0 {
		return nil, apperr.Validation("serial_number ve device_type_id zorunlu")
	}

	device := models.DeviceRecord{
		DeviceTypeID:  in.DeviceTypeID,
		SerialNumber:  in.SerialNumber,
		InstitutionID: in.InstitutionID,
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.DeviceRecord{}).Where("serial_number = ?", in.SerialNumber).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return apperr.Conflict("bu seri numarası zaten kayıtlı: %s", in.SerialNumber)
		}
		var dt models.DeviceType
		if err := tx.First(&dt, in.DeviceTypeID).Error; err != nil {
			return notFoundOr(err, "cihaz tipi bulunamadı: %d", in.DeviceTypeID)
		}
		if in.InstitutionID != nil {
			var inst models.Institution
			if err := tx.First(&inst, *in.InstitutionID).Error; err != nil {
				return notFoundOr(err, "kurum bulunamadı: %d", *in.InstitutionID)
			}
		}
		return tx.Create(&device).Error
	})
	if err != nil {
		return nil, apperr.Store("cihaz kaydedilemedi", err)
	}
	return &device, nil
}

type FaultUpdate struct {
	Technician   *string
	InitialNotes *string
	ClosingNotes *string
	ClosedDate   *time.Time
}

// UpdateFault arıza kaydını günceller; kapanış tarihi arıza tarihinden önce olamaz.
func UpdateFault(ctx context.Context, db *gorm.DB, id uint, in FaultUpdate) (*models.Fault, error) {
	var f models.Fault
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&f, id).Error; err != nil {
			return notFoundOr(err, "arıza kaydı bulunamadı: %d", id)
		}
		updates := map[string]any{}
		if in.Technician != nil && *in.Technician != f.Technician {
			if err := keyTaken(tx, &models.Fault{}, f.ID, "bu cihaz için aynı tarih ve teknisyenle arıza kaydı zaten var",
				"device_id = ? AND fault_date = ? AND technician = ?", f.DeviceID, f.FaultDate, *in.Technician); err != nil {
				return err
			}
			f.Technician = *in.Technician
			updates["technician"] = f.Technician
		}
		if in.InitialNotes != nil {
			f.InitialNotes = *in.InitialNotes
			updates["initial_notes"] = f.InitialNotes
		}
		if in.ClosingNotes != nil {
			f.ClosingNotes = *in.ClosingNotes
			updates["closing_notes"] = f.ClosingNotes
		}
		if in.ClosedDate != nil {
			d := dates.Day(*in.ClosedDate)
			if d.Before(dates.Day(f.FaultDate)) {
				return apperr.Validation("kapanış tarihi arıza tarihinden önce olamaz")
			}
			f.ClosedDate = &d
			updates["closed_date"] = d
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&f).Updates(updates).Error
	})
	if err != nil {
		return nil, apperr.Store("arıza kaydı güncellenemedi", err)
	}
	return &f, nil
}
