package fleet

import (
	"strings"

	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/apperr"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/database"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/dates"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type MaintenanceRequest struct {
	DeviceID  uint   `json:"device_id"`
	Date      string `json:"date"`
	Personnel string `json:"personnel"`
	Notes     string `json:"notes"`
}

type MaintenanceResponse struct {
	ID        uint   `json:"id"`
	DeviceID  uint   `json:"device_id"`
	Date      string `json:"date"`
	Personnel string `json:"personnel"`
	Notes     string `json:"notes"`
}

type FaultRequest struct {
	DeviceID     uint    `json:"device_id"`
	FaultDate    string  `json:"fault_date"`
	Technician   *string `json:"technician"`
	InitialNotes *string `json:"initial_notes"`
	ClosingNotes *string `json:"closing_notes"`
	ClosedDate   *string `json:"closed_date"`
}

type FaultResponse struct {
	ID           uint   `json:"id"`
	DeviceID     uint   `json:"device_id"`
	FaultDate    string `json:"fault_date"`
	Technician   string `json:"technician"`
	InitialNotes string `json:"initial_notes"`
	ClosingNotes string `json:"closing_notes"`
	ClosedDate   string `json:"closed_date"`
	Status       string `json:"status"`
}

func toMaintenanceResponse(m *models.Maintenance) MaintenanceResponse {
	return MaintenanceResponse{
		ID:        m.ID,
		DeviceID:  m.DeviceID,
		Date:      dates.Format(m.Date),
		Personnel: m.Personnel,
		Notes:     m.Notes,
	}
}

func toFaultResponse(f *models.Fault) FaultResponse {
	return FaultResponse{
		ID:           f.ID,
		DeviceID:     f.DeviceID,
		FaultDate:    dates.Format(f.FaultDate),
		Technician:   f.Technician,
		InitialNotes: f.InitialNotes,
		ClosingNotes: f.ClosingNotes,
		ClosedDate:   dates.FormatPtr(f.ClosedDate),
		Status:       f.Status(),
	}
}

func deviceExists(id uint) bool {
	var n int64
	database.DB.Model(&models.DeviceRecord{}).Where("id = ?", id).Count(&n)
	return n > 0
}

// GET /api/maintenance?device=1
func ListMaintenanceHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		deviceID := c.QueryInt("device", 0)
		if deviceID <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "device parametresi zorunlu")
		}
		var list []models.Maintenance
		if err := database.DB.Where("device_id = ?", deviceID).Order("date DESC, id DESC").Find(&list).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Bakımlar listelenemedi")
		}

		res := make([]MaintenanceResponse, 0, len(list))
		for i := range list {
			res = append(res, toMaintenanceResponse(&list[i]))
		}
		return c.JSON(res)
	}
}

// POST /api/maintenance
func CreateMaintenanceHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body MaintenanceRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		d, err := parseDate("date", body.Date)
		if err != nil {
			return err
		}
		if body.DeviceID == 0 || !deviceExists(body.DeviceID) {
			return fiber.NewError(fiber.StatusNotFound, "Cihaz bulunamadı")
		}

		m := models.Maintenance{
			DeviceID:  body.DeviceID,
			Date:      d,
			Personnel: strings.TrimSpace(body.Personnel),
			Notes:     strings.TrimSpace(body.Notes),
		}
		if err := keyTaken(database.DB, &models.Maintenance{}, 0, "Bu cihaz için aynı tarih ve personelle bakım kaydı zaten var",
			"device_id = ? AND date = ? AND personnel = ?", m.DeviceID, m.Date, m.Personnel); err != nil {
			return apperr.ToFiber(err)
		}
		if err := database.DB.Omit("Device").Create(&m).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Bakım kaydedilemedi")
		}
		writeAudit(c, "maintenance", m.ID, models.AuditActionCreate, "Bakım eklendi", nil, m)
		return c.Status(fiber.StatusCreated).JSON(toMaintenanceResponse(&m))
	}
}

// GET /api/faults?device=1&status=open
func ListFaultsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.Fault{})
		if deviceID := c.QueryInt("device", 0); deviceID > 0 {
			dbq = dbq.Where("device_id = ?", deviceID)
		}
		switch c.Query("status") {
		case "open":
			dbq = dbq.Where("closed_date IS NULL")
		case "closed":
			dbq = dbq.Where("closed_date IS NOT NULL")
		}

		var list []models.Fault
		if err := dbq.Order("fault_date DESC, id DESC").Find(&list).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Arızalar listelenemedi")
		}

		res := make([]FaultResponse, 0, len(list))
		for i := range list {
			res = append(res, toFaultResponse(&list[i]))
		}
		return c.JSON(res)
	}
}

// GET /api/faults/:id
func GetFaultHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		var f models.Fault
		if err := database.DB.First(&f, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Arıza kaydı bulunamadı")
		}
		return c.JSON(toFaultResponse(&f))
	}
}

// POST /api/faults
func CreateFaultHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body FaultRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		faultDate, err := parseDate("fault_date", body.FaultDate)
		if err != nil {
			return err
		}
		closedDate, err := parseOptionalDate("closed_date", body.ClosedDate)
		if err != nil {
			return err
		}
		if closedDate != nil && closedDate.Before(faultDate) {
			return fiber.NewError(fiber.StatusBadRequest, "Kapanış tarihi arıza tarihinden önce olamaz")
		}
		if body.DeviceID == 0 || !deviceExists(body.DeviceID) {
			return fiber.NewError(fiber.StatusNotFound, "Cihaz bulunamadı")
		}

		f := models.Fault{DeviceID: body.DeviceID, FaultDate: faultDate, ClosedDate: closedDate}
		if body.Technician != nil {
			f.Technician = strings.TrimSpace(*body.Technician)
		}
		if body.InitialNotes != nil {
			f.InitialNotes = strings.TrimSpace(*body.InitialNotes)
		}
		if body.ClosingNotes != nil {
			f.ClosingNotes = strings.TrimSpace(*body.ClosingNotes)
		}
		if err := keyTaken(database.DB, &models.Fault{}, 0, "Bu cihaz için aynı tarih ve teknisyenle arıza kaydı zaten var",
			"device_id = ? AND fault_date = ? AND technician = ?", f.DeviceID, f.FaultDate, f.Technician); err != nil {
			return apperr.ToFiber(err)
		}
		if err := database.DB.Omit("Device").Create(&f).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Arıza kaydedilemedi")
		}
		writeAudit(c, "fault", f.ID, models.AuditActionCreate, "Arıza kaydı açıldı", nil, f)
		return c.Status(fiber.StatusCreated).JSON(toFaultResponse(&f))
	}
}

// PUT /api/faults/:id
func UpdateFaultHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		var body FaultRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		closedDate, err := parseOptionalDate("closed_date", body.ClosedDate)
		if err != nil {
			return err
		}

		f, err := UpdateFault(c.UserContext(), database.DB, id, FaultUpdate{
			Technician:   body.Technician,
			InitialNotes: body.InitialNotes,
			ClosingNotes: body.ClosingNotes,
			ClosedDate:   closedDate,
		})
		if err != nil {
			return apperr.ToFiber(err)
		}
		writeAudit(c, "fault", f.ID, models.AuditActionUpdate, "Arıza kaydı güncellendi", nil, f)
		return c.JSON(toFaultResponse(f))
	}
}
