package fleet

import (
	"fmt"
	"strings"

	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/apperr"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/auth"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/database"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/dates"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type InstitutionRequest struct {
	Name         *string `json:"name"`
	City         *string `json:"city"`
	ContactName  *string `json:"contact_name"`
	ContactPhone *string `json:"contact_phone"`
}

type NoteRequest struct {
	NoteDate string `json:"note_date"` // boşsa bugün
	Text     string `json:"text"`
}

type NoteResponse struct {
	ID            uint   `json:"id"`
	InstitutionID uint   `json:"institution_id"`
	UserID        *uint  `json:"user_id"`
	Username      string `json:"username"`
	NoteDate      string `json:"note_date"`
	Text          string `json:"text"`
}

func toNoteResponse(n *models.InstitutionNote) NoteResponse {
	r := NoteResponse{
		ID:            n.ID,
		InstitutionID: n.InstitutionID,
		UserID:        n.UserID,
		NoteDate:      dates.Format(n.NoteDate),
		Text:          n.Text,
	}
	if n.User != nil {
		r.Username = n.User.Username
	}
	return r
}

// GET /api/institutions?search=ank
func ListInstitutionsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.Institution{})
		if s := strings.TrimSpace(c.Query("search")); s != "" {
			like := "%" + strings.ToLower(s) + "%"
			dbq = dbq.Where("LOWER(name) LIKE ? OR LOWER(city) LIKE ?", like, like)
		}

		var list []models.Institution
		if err := dbq.Order("name ASC").Find(&list).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kurumlar listelenemedi")
		}
		return c.JSON(list)
	}
}

// GET /api/institutions/:id
func GetInstitutionHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		var inst models.Institution
		if err := database.DB.First(&inst, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Kurum bulunamadı")
		}
		return c.JSON(inst)
	}
}

// POST /api/institutions
func CreateInstitutionHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body InstitutionRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if body.Name == nil || strings.TrimSpace(*body.Name) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Kurum adı zorunlu")
		}

		inst := models.Institution{Name: strings.TrimSpace(*body.Name)}
		applyInstitution(&inst, body)

		var n int64
		database.DB.Model(&models.Institution{}).Where("name = ?", inst.Name).Count(&n)
		if n > 0 {
			return fiber.NewError(fiber.StatusConflict, "Bu isimde bir kurum zaten var")
		}
		if err := database.DB.Create(&inst).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kurum oluşturulamadı")
		}

		writeAudit(c, "institution", inst.ID, models.AuditActionCreate, "Kurum eklendi: "+inst.Name, nil, inst)
		return c.Status(fiber.StatusCreated).JSON(inst)
	}
}

// PUT /api/institutions/:id
func UpdateInstitutionHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		var inst models.Institution
		if err := database.DB.First(&inst, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Kurum bulunamadı")
		}
		var body InstitutionRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		before := inst
		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Kurum adı boş olamaz")
			}
			var n int64
			database.DB.Model(&models.Institution{}).Where("name = ? AND id <> ?", name, id).Count(&n)
			if n > 0 {
				return fiber.NewError(fiber.StatusConflict, "Bu isimde bir kurum zaten var")
			}
			inst.Name = name
		}
		applyInstitution(&inst, body)

		if err := database.DB.Save(&inst).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kurum güncellenemedi")
		}
		writeAudit(c, "institution", inst.ID, models.AuditActionUpdate, "Kurum güncellendi: "+inst.Name, before, inst)
		return c.JSON(inst)
	}
}

func applyInstitution(inst *models.Institution, body InstitutionRequest) {
	if body.City != nil {
		inst.City = strings.TrimSpace(*body.City)
	}
	if body.ContactName != nil {
		inst.ContactName = strings.TrimSpace(*body.ContactName)
	}
	if body.ContactPhone != nil {
		inst.ContactPhone = strings.TrimSpace(*body.ContactPhone)
	}
}

// GET /api/institutions/:id/installations?open=true
func InstitutionInstallationsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		dbq := database.DB.Preload("Device.DeviceType").Where("institution_id = ?", id)
		if c.QueryBool("open", false) {
			dbq = dbq.Where("uninstall_date IS NULL")
		}

		var list []models.Installation
		if err := dbq.Order("install_date DESC, id DESC").Find(&list).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kurulumlar listelenemedi")
		}
		return c.JSON(toInstallationResponses(list))
	}
}

// GET /api/institutions/:id/notes
func ListNotesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		var notes []models.InstitutionNote
		if err := database.DB.Preload("User").
			Where("institution_id = ?", id).
			Order("note_date DESC, id DESC").
			Find(&notes).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Notlar listelenemedi")
		}

		res := make([]NoteResponse, 0, len(notes))
		for i := range notes {
			res = append(res, toNoteResponse(&notes[i]))
		}
		return c.JSON(res)
	}
}

// POST /api/institutions/:id/notes
func CreateNoteHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		var body NoteRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if strings.TrimSpace(body.Text) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Not metni zorunlu")
		}
		noteDate := dates.Today()
		if body.NoteDate != "" {
			if noteDate, err = parseDate("note_date", body.NoteDate); err != nil {
				return err
			}
		}
		userID, _, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		var inst models.Institution
		if err := database.DB.First(&inst, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Kurum bulunamadı")
		}

		note := models.InstitutionNote{
			InstitutionID: inst.ID,
			UserID:        &userID,
			NoteDate:      noteDate,
			Text:          strings.TrimSpace(body.Text),
		}
		if err := keyTaken(database.DB, &models.InstitutionNote{}, 0, "Bu kurum için aynı tarihli aynı not zaten var",
			"institution_id = ? AND note_date = ? AND text = ?", note.InstitutionID, note.NoteDate, note.Text); err != nil {
			return apperr.ToFiber(err)
		}
		if err := database.DB.Omit("Institution", "User").Create(&note).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Not kaydedilemedi")
		}
		database.DB.Preload("User").First(&note, note.ID)

		writeAudit(c, "institution_note", note.ID, models.AuditActionCreate, fmt.Sprintf("Not eklendi: %s", inst.Name), nil, note)
		return c.Status(fiber.StatusCreated).JSON(toNoteResponse(&note))
	}
}

// PUT /api/notes/:id
// Sadece notu yazan kullanıcı veya admin düzenleyebilir.
func UpdateNoteHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		note, err := loadOwnNote(c)
		if err != nil {
			return err
		}
		var body NoteRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		before := *note
		if strings.TrimSpace(body.Text) != "" {
			note.Text = strings.TrimSpace(body.Text)
		}
		if body.NoteDate != "" {
			if note.NoteDate, err = parseDate("note_date", body.NoteDate); err != nil {
				return err
			}
		}
		if err := keyTaken(database.DB, &models.InstitutionNote{}, note.ID, "Bu kurum için aynı tarihli aynı not zaten var",
			"institution_id = ? AND note_date = ? AND text = ?", note.InstitutionID, note.NoteDate, note.Text); err != nil {
			return apperr.ToFiber(err)
		}
		if err := database.DB.Model(note).Updates(map[string]any{"text": note.Text, "note_date": note.NoteDate}).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Not güncellenemedi")
		}

		writeAudit(c, "institution_note", note.ID, models.AuditActionUpdate, "Not güncellendi", before, note)
		return c.JSON(toNoteResponse(note))
	}
}

// DELETE /api/notes/:id
func DeleteNoteHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		note, err := loadOwnNote(c)
		if err != nil {
			return err
		}
		if err := database.DB.Delete(&models.InstitutionNote{}, note.ID).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Not silinemedi")
		}
		writeAudit(c, "institution_note", note.ID, models.AuditActionDelete, "Not silindi", note, nil)
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func loadOwnNote(c *fiber.Ctx) (*models.InstitutionNote, error) {
	id, err := paramID(c, "id")
	if err != nil {
		return nil, err
	}
	userID, _, err := auth.CurrentUser(c)
	if err != nil {
		return nil, err
	}

	var note models.InstitutionNote
	if err := database.DB.Preload("User").First(&note, id).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Not bulunamadı")
	}
	isAdmin, _ := c.Locals(auth.CtxIsAdminKey).(bool)
	if !isAdmin && (note.UserID == nil || *note.UserID != userID) {
		return nil, fiber.NewError(fiber.StatusForbidden, "Bu notu düzenleme yetkiniz yok")
	}
	return &note, nil
}
