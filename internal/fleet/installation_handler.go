package fleet

import (
	"fmt"

	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/apperr"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/database"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/dates"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type InstallationRequest struct {
	DeviceID        uint    `json:"device_id"`
	InstitutionID   uint    `json:"institution_id"`
	InstallDate     string  `json:"install_date"`
	UninstallDate   *string `json:"uninstall_date"`
	ConnectedCoreID *uint   `json:"connected_core_id"`
}

type UninstallRequest struct {
	UninstallDate string `json:"uninstall_date"` // boşsa bugün
}

type InstallationResponse struct {
	ID                  uint   `json:"id"`
	DeviceID            uint   `json:"device_id"`
	SerialNumber        string `json:"serial_number"`
	DeviceTypeName      string `json:"device_type_name"`
	InstitutionID       uint   `json:"institution_id"`
	InstitutionName     string `json:"institution_name"`
	InstallDate         string `json:"install_date"`
	UninstallDate       string `json:"uninstall_date"`
	ConnectedCoreID     *uint  `json:"connected_core_id"`
	ConnectedCoreSerial string `json:"connected_core_serial"`
	IsOpen              bool   `json:"is_open"`
}

func toInstallationResponse(i *models.Installation) InstallationResponse {
	r := InstallationResponse{
		ID:              i.ID,
		DeviceID:        i.DeviceID,
		SerialNumber:    i.Device.SerialNumber,
		DeviceTypeName:  i.Device.DeviceType.Name,
		InstitutionID:   i.InstitutionID,
		InstitutionName: i.Institution.Name,
		InstallDate:     dates.Format(i.InstallDate),
		UninstallDate:   dates.FormatPtr(i.UninstallDate),
		ConnectedCoreID: i.ConnectedCoreID,
		IsOpen:          i.IsOpen(),
	}
	if i.ConnectedCore != nil {
		r.ConnectedCoreSerial = i.ConnectedCore.SerialNumber
	}
	return r
}

func toInstallationResponses(list []models.Installation) []InstallationResponse {
	res := make([]InstallationResponse, 0, len(list))
	for i := range list {
		res = append(res, toInstallationResponse(&list[i]))
	}
	return res
}

func loadInstallation(id uint) (*models.Installation, error) {
	var inst models.Installation
	err := database.DB.
		Preload("Device.DeviceType").
		Preload("Institution").
		Preload("ConnectedCore").
		First(&inst, id).Error
	return &inst, err
}

// GET /api/installations?device=1 veya ?institution=2
func ListInstallationsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Preload("Device.DeviceType").Preload("Institution").Preload("ConnectedCore")
		deviceID := c.QueryInt("device", 0)
		institutionID := c.QueryInt("institution", 0)
		if deviceID <= 0 && institutionID <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "device veya institution parametresi zorunlu")
		}
		if deviceID > 0 {
			dbq = dbq.Where("device_id = ?", deviceID)
		}
		if institutionID > 0 {
			dbq = dbq.Where("institution_id = ?", institutionID)
		}

		var list []models.Installation
		if err := dbq.Order("install_date DESC, id DESC").Find(&list).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kurulumlar listelenemedi")
		}
		return c.JSON(toInstallationResponses(list))
	}
}

// GET /api/installations/:id
func GetInstallationHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		inst, err := loadInstallation(id)
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Kurulum bulunamadı")
		}
		return c.JSON(toInstallationResponse(inst))
	}
}

// POST /api/installations
func CreateInstallationHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body InstallationRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if body.DeviceID == 0 || body.InstitutionID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "device_id ve institution_id zorunlu")
		}
		installDate, err := parseDate("install_date", body.InstallDate)
		if err != nil {
			return err
		}
		uninstallDate, err := parseOptionalDate("uninstall_date", body.UninstallDate)
		if err != nil {
			return err
		}

		created, closed, err := CreateInstallation(c.UserContext(), database.DB, InstallInput{
			DeviceID:        body.DeviceID,
			InstitutionID:   body.InstitutionID,
			InstallDate:     installDate,
			UninstallDate:   uninstallDate,
			ConnectedCoreID: body.ConnectedCoreID,
		})
		if err != nil {
			return apperr.ToFiber(err)
		}

		if closed != nil {
			writeAudit(c, "installation", closed.ID, models.AuditActionUpdate,
				fmt.Sprintf("Önceki kurulum kapatıldı: %s", dates.FormatPtr(closed.UninstallDate)), nil, closed)
		}
		writeAudit(c, "installation", created.ID, models.AuditActionCreate, "Kurulum eklendi", nil, created)

		inst, err := loadInstallation(created.ID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kurulum okunamadı")
		}
		return c.Status(fiber.StatusCreated).JSON(toInstallationResponse(inst))
	}
}

// PATCH /api/installations/:id/uninstall
func UninstallHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		var body UninstallRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&body); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
			}
		}
		date := dates.Today()
		if body.UninstallDate != "" {
			if date, err = parseDate("uninstall_date", body.UninstallDate); err != nil {
				return err
			}
		}

		updated, err := Uninstall(c.UserContext(), database.DB, id, date)
		if err != nil {
			return apperr.ToFiber(err)
		}
		writeAudit(c, "installation", updated.ID, models.AuditActionUpdate,
			"Cihaz sökümü: "+dates.Format(date), nil, updated)

		inst, err := loadInstallation(updated.ID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kurulum okunamadı")
		}
		return c.JSON(toInstallationResponse(inst))
	}
}
