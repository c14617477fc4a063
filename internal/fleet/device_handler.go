package fleet

import (
	"strings"

	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/apperr"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/database"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type DeviceTypeRequest struct {
	Name         string `json:"name"`
	Category     string `json:"category"`
	CoreRequired bool   `json:"core_required"`
	IsCore       bool   `json:"is_core"`
}

type DeviceRequest struct {
	DeviceTypeID  uint   `json:"device_type_id"`
	SerialNumber  string `json:"serial_number"`
	InstitutionID *uint  `json:"institution_id"`
}

type DeviceResponse struct {
	ID              uint                  `json:"id"`
	SerialNumber    string                `json:"serial_number"`
	DeviceTypeID    uint                  `json:"device_type_id"`
	DeviceTypeName  string                `json:"device_type_name"`
	InstitutionID   *uint                 `json:"institution_id"`
	InstitutionName string                `json:"institution_name"`
	Current         *InstallationResponse `json:"current_installation"`
}

type HistoryResponse struct {
	Device        DeviceResponse         `json:"device"`
	Installations []InstallationResponse `json:"installations"`
	Maintenance   []MaintenanceResponse  `json:"maintenance"`
	Faults        []FaultResponse        `json:"faults"`
}

func toDeviceResponse(d *models.DeviceRecord) DeviceResponse {
	r := DeviceResponse{
		ID:             d.ID,
		SerialNumber:   d.SerialNumber,
		DeviceTypeID:   d.DeviceTypeID,
		DeviceTypeName: d.DeviceType.Name,
		InstitutionID:  d.InstitutionID,
	}
	if d.Institution != nil {
		r.InstitutionName = d.Institution.Name
	}
	return r
}

// GET /api/device-types
func ListDeviceTypesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var list []models.DeviceType
		if err := database.DB.Order("name ASC").Find(&list).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Cihaz tipleri listelenemedi")
		}
		return c.JSON(list)
	}
}

// POST /api/device-types
func CreateDeviceTypeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body DeviceTypeRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Cihaz tipi adı zorunlu")
		}
		if body.CoreRequired && body.IsCore {
			return fiber.NewError(fiber.StatusBadRequest, "Bir cihaz tipi hem core hem core'a bağlı olamaz")
		}

		var n int64
		database.DB.Model(&models.DeviceType{}).Where("name = ?", body.Name).Count(&n)
		if n > 0 {
			return fiber.NewError(fiber.StatusConflict, "Bu cihaz tipi zaten var")
		}

		dt := models.DeviceType{
			Name:         body.Name,
			Category:     strings.TrimSpace(body.Category),
			CoreRequired: body.CoreRequired,
			IsCore:       body.IsCore,
		}
		if err := database.DB.Create(&dt).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Cihaz tipi oluşturulamadı")
		}
		writeAudit(c, "device_type", dt.ID, models.AuditActionCreate, "Cihaz tipi eklendi: "+dt.Name, nil, dt)
		return c.Status(fiber.StatusCreated).JSON(dt)
	}
}

// GET /api/device-records?search=SN&device_type_id=1&institution_id=2
func ListDevicesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Preload("DeviceType").Preload("Institution")
		if s := strings.TrimSpace(c.Query("search")); s != "" {
			dbq = dbq.Where("LOWER(serial_number) LIKE ?", "%"+strings.ToLower(s)+"%")
		}
		if v := c.QueryInt("device_type_id", 0); v > 0 {
			dbq = dbq.Where("device_type_id = ?", v)
		}
		if v := c.QueryInt("institution_id", 0); v > 0 {
			dbq = dbq.Where("institution_id = ?", v)
		}

		var list []models.DeviceRecord
		if err := dbq.Order("serial_number ASC").Find(&list).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Cihazlar listelenemedi")
		}

		res := make([]DeviceResponse, 0, len(list))
		for i := range list {
			res = append(res, toDeviceResponse(&list[i]))
		}
		return c.JSON(res)
	}
}

// POST /api/device-records
func CreateDeviceHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body DeviceRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		device, err := CreateDevice(c.UserContext(), database.DB, DeviceInput{
			DeviceTypeID:  body.DeviceTypeID,
			SerialNumber:  body.SerialNumber,
			InstitutionID: body.InstitutionID,
		})
		if err != nil {
			return apperr.ToFiber(err)
		}
		database.DB.Preload("DeviceType").Preload("Institution").First(device, device.ID)

		writeAudit(c, "device_record", device.ID, models.AuditActionCreate, "Cihaz eklendi: "+device.SerialNumber, nil, device)
		return c.Status(fiber.StatusCreated).JSON(toDeviceResponse(device))
	}
}

// GET /api/device-records/:id
// Güncel konum açık kurulumdan okunur.
func GetDeviceHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		var device models.DeviceRecord
		if err := database.DB.Preload("DeviceType").Preload("Institution").First(&device, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Cihaz bulunamadı")
		}
		current, err := CurrentPlacement(c.UserContext(), database.DB, device.ID)
		if err != nil {
			return apperr.ToFiber(err)
		}

		resp := toDeviceResponse(&device)
		if current != nil {
			if full, err := loadInstallation(current.ID); err == nil {
				current = full
			}
			r := toInstallationResponse(current)
			resp.Current = &r
			resp.InstitutionID = &current.InstitutionID
			resp.InstitutionName = current.Institution.Name
		}
		return c.JSON(resp)
	}
}

// GET /api/device-records/:id/history
func DeviceHistoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		h, err := DeviceHistory(c.UserContext(), database.DB, id)
		if err != nil {
			return apperr.ToFiber(err)
		}

		resp := HistoryResponse{
			Device:        toDeviceResponse(&h.Device),
			Installations: toInstallationResponses(h.Installations),
			Maintenance:   make([]MaintenanceResponse, 0, len(h.Maintenance)),
			Faults:        make([]FaultResponse, 0, len(h.Faults)),
		}
		if h.Current != nil {
			r := toInstallationResponse(h.Current)
			resp.Device.Current = &r
			resp.Device.InstitutionID = &h.Current.InstitutionID
			resp.Device.InstitutionName = h.Current.Institution.Name
		}
		for i := range h.Maintenance {
			resp.Maintenance = append(resp.Maintenance, toMaintenanceResponse(&h.Maintenance[i]))
		}
		for i := range h.Faults {
			resp.Faults = append(resp.Faults, toFaultResponse(&h.Faults[i]))
		}
		return c.JSON(resp)
	}
}

