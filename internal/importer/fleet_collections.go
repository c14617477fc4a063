package importer

import (
	"fmt"
	"sort"
	"time"

	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/apperr"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/dates"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/models"

	"gorm.io/gorm"
)

func findAll[M any](tx *gorm.DB) ([]M, error) {
	var list []M
	err := tx.Find(&list).Error
	return list, err
}

func sameDate(a, b *time.Time) bool {
	return dates.FormatPtr(a) == dates.FormatPtr(b)
}

func parseDateCell(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("%s zorunlu", field)
	}
	t, err := dates.Parse(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %v", field, err)
	}
	return t, nil
}

func parseOptionalDateCell(field, s string) (*time.Time, error) {
	t, err := dates.ParseOptional(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", field, err)
	}
	return t, nil
}

// ---- institutions

type institutionRow struct {
	Name, City, ContactName, ContactPhone string
}

var institutions = &collection[institutionRow, models.Institution]{
	name:   "institutions",
	header: []string{"name", "city", "contact_name", "contact_phone"},
	parseRow: func(cells []string) (institutionRow, error) {
		r := institutionRow{cell(cells, 0), cell(cells, 1), cell(cells, 2), cell(cells, 3)}
		return r, required("name", r.Name)
	},
	rowKey: func(r *institutionRow) string { return r.Name },
	table: table[models.Institution]{
		key:   func(m *models.Institution) string { return m.Name },
		id:    func(m *models.Institution) uint { return m.ID },
		setID: func(m *models.Institution, id uint) { m.ID = id },
		same: func(a, b *models.Institution) bool {
			return a.City == b.City && a.ContactName == b.ContactName && a.ContactPhone == b.ContactPhone
		},
		columns: []string{"city", "contact_name", "contact_phone"},
	},
	load: findAll[models.Institution],
	build: func(_ *refs, r *institutionRow) (models.Institution, error) {
		return models.Institution{Name: r.Name, City: r.City, ContactName: r.ContactName, ContactPhone: r.ContactPhone}, nil
	},
	exportRows: func(db *gorm.DB) ([][]any, error) {
		var list []models.Institution
		if err := db.Order("name").Find(&list).Error; err != nil {
			return nil, err
		}
		rows := make([][]any, 0, len(list))
		for _, m := range list {
			rows = append(rows, []any{m.Name, m.City, m.ContactName, m.ContactPhone})
		}
		return rows, nil
	},
}

// ---- device-types

type deviceTypeRow struct {
	Name, Category       string
	CoreRequired, IsCore bool
}

var deviceTypes = &collection[deviceTypeRow, models.DeviceType]{
	name:   "device-types",
	header: []string{"name", "category", "core_required", "is_core"},
	parseRow: func(cells []string) (deviceTypeRow, error) {
		r := deviceTypeRow{Name: cell(cells, 0), Category: cell(cells, 1)}
		if err := required("name", r.Name); err != nil {
			return r, err
		}
		var err error
		if r.CoreRequired, err = parseBool("core_required", cell(cells, 2)); err != nil {
			return r, err
		}
		if r.IsCore, err = parseBool("is_core", cell(cells, 3)); err != nil {
			return r, err
		}
		if r.CoreRequired && r.IsCore {
			return r, fmt.Errorf("bir tip hem core hem core'a bağlı olamaz")
		}
		return r, nil
	},
	rowKey: func(r *deviceTypeRow) string { return r.Name },
	table: table[models.DeviceType]{
		key:   func(m *models.DeviceType) string { return m.Name },
		id:    func(m *models.DeviceType) uint { return m.ID },
		setID: func(m *models.DeviceType, id uint) { m.ID = id },
		same: func(a, b *models.DeviceType) bool {
			return a.Category == b.Category && a.CoreRequired == b.CoreRequired && a.IsCore == b.IsCore
		},
		columns: []string{"category", "core_required", "is_core"},
	},
	load: findAll[models.DeviceType],
	build: func(_ *refs, r *deviceTypeRow) (models.DeviceType, error) {
		return models.DeviceType{Name: r.Name, Category: r.Category, CoreRequired: r.CoreRequired, IsCore: r.IsCore}, nil
	},
	exportRows: func(db *gorm.DB) ([][]any, error) {
		var list []models.DeviceType
		if err := db.Order("name").Find(&list).Error; err != nil {
			return nil, err
		}
		rows := make([][]any, 0, len(list))
		for _, m := range list {
			rows = append(rows, []any{m.Name, m.Category, m.CoreRequired, m.IsCore})
		}
		return rows, nil
	},
}

// ---- device-records

type deviceRow struct {
	Serial, DeviceType, Institution string
}

var deviceRecords = &collection[deviceRow, models.DeviceRecord]{
	name:   "device-records",
	header: []string{"serial_number", "device_type", "institution"},
	parseRow: func(cells []string) (deviceRow, error) {
		r := deviceRow{cell(cells, 0), cell(cells, 1), cell(cells, 2)}
		if err := required("serial_number", r.Serial); err != nil {
			return r, err
		}
		return r, required("device_type", r.DeviceType)
	},
	rowKey: func(r *deviceRow) string { return r.Serial },
	table: table[models.DeviceRecord]{
		key:   func(m *models.DeviceRecord) string { return m.SerialNumber },
		id:    func(m *models.DeviceRecord) uint { return m.ID },
		setID: func(m *models.DeviceRecord, id uint) { m.ID = id },
		same: func(a, b *models.DeviceRecord) bool {
			return a.DeviceTypeID == b.DeviceTypeID && sameUintPtr(a.InstitutionID, b.InstitutionID)
		},
		columns: []string{"device_type_id", "institution_id"},
	},
	load: findAll[models.DeviceRecord],
	build: func(refs *refs, r *deviceRow) (models.DeviceRecord, error) {
		dt, err := refs.deviceType(r.DeviceType)
		if err != nil {
			return models.DeviceRecord{}, err
		}
		m := models.DeviceRecord{SerialNumber: r.Serial, DeviceTypeID: dt.ID}
		if r.Institution != "" {
			id, err := refs.institution(r.Institution)
			if err != nil {
				return m, err
			}
			m.InstitutionID = &id
		}
		return m, nil
	},
	exportRows: func(db *gorm.DB) ([][]any, error) {
		var list []models.DeviceRecord
		if err := db.Preload("DeviceType").Preload("Institution").Order("serial_number").Find(&list).Error; err != nil {
			return nil, err
		}
		rows := make([][]any, 0, len(list))
		for _, m := range list {
			inst := ""
			if m.Institution != nil {
				inst = m.Institution.Name
			}
			rows = append(rows, []any{m.SerialNumber, m.DeviceType.Name, inst})
		}
		return rows, nil
	},
}

// ---- installations

type installationRow struct {
	Serial        string
	Institution   string
	InstallDate   time.Time
	UninstallDate *time.Time
	CoreSerial    string
}

var installations = &collection[installationRow, models.Installation]{
	name:   "installations",
	header: []string{"serial_number", "institution", "install_date", "uninstall_date", "connected_core_serial"},
	parseRow: func(cells []string) (installationRow, error) {
		r := installationRow{Serial: cell(cells, 0), Institution: cell(cells, 1), CoreSerial: cell(cells, 4)}
		if err := required("serial_number", r.Serial); err != nil {
			return r, err
		}
		if err := required("institution", r.Institution); err != nil {
			return r, err
		}
		var err error
		if r.InstallDate, err = parseDateCell("install_date", cell(cells, 2)); err != nil {
			return r, err
		}
		if r.UninstallDate, err = parseOptionalDateCell("uninstall_date", cell(cells, 3)); err != nil {
			return r, err
		}
		if r.UninstallDate != nil && r.UninstallDate.Before(r.InstallDate) {
			return r, fmt.Errorf("uninstall_date kurulum tarihinden önce olamaz")
		}
		if r.CoreSerial == r.Serial {
			return r, fmt.Errorf("cihaz kendisine core olarak bağlanamaz")
		}
		return r, nil
	},
	rowKey: func(r *installationRow) string { return r.Serial + "|" + dates.Format(r.InstallDate) },
	validate: func(recs []installationRow, lines []int) error {
		open := make(map[string]int)
		for i := range recs {
			if recs[i].UninstallDate != nil {
				continue
			}
			if prev, ok := open[recs[i].Serial]; ok {
				return apperr.Validation("installations satır %d: %s cihazının %d. satırda da açık kurulumu var",
					lines[i], recs[i].Serial, prev)
			}
			open[recs[i].Serial] = lines[i]
		}
		return nil
	},
	table: table[models.Installation]{
		key: func(m *models.Installation) string {
			return fmt.Sprintf("%d|%s", m.DeviceID, dates.Format(m.InstallDate))
		},
		id:    func(m *models.Installation) uint { return m.ID },
		setID: func(m *models.Installation, id uint) { m.ID = id },
		same: func(a, b *models.Installation) bool {
			return a.InstitutionID == b.InstitutionID && sameDate(a.UninstallDate, b.UninstallDate) &&
				sameUintPtr(a.ConnectedCoreID, b.ConnectedCoreID)
		},
		columns: []string{"institution_id", "uninstall_date", "connected_core_id"},
	},
	load: findAll[models.Installation],
	build: func(refs *refs, r *installationRow) (models.Installation, error) {
		device, err := refs.device(r.Serial)
		if err != nil {
			return models.Installation{}, err
		}
		instID, err := refs.institution(r.Institution)
		if err != nil {
			return models.Installation{}, err
		}
		m := models.Installation{
			DeviceID:      device.ID,
			InstitutionID: instID,
			InstallDate:   r.InstallDate,
			UninstallDate: r.UninstallDate,
		}
		if r.CoreSerial != "" {
			core, err := refs.device(r.CoreSerial)
			if err != nil {
				return m, err
			}
			if !core.DeviceType.IsCore {
				return m, apperr.Validation("%s bir core cihazı değil", r.CoreSerial)
			}
			m.ConnectedCoreID = &core.ID
		} else if r.UninstallDate == nil && device.DeviceType.CoreRequired {
			return m, apperr.Validation("%s cihazı için core bağlantısı zorunlu", r.Serial)
		}
		return m, nil
	},
	// Kapatan güncellemeler önce yazılır; aksi halde cihaz başına tek açık
	// kurulum index'i içe aktarma ortasında ihlal edilebilir.
	order: func(d *diff[models.Installation]) {
		sort.SliceStable(d.updates, func(i, j int) bool {
			return closes(d.updates[i]) && !closes(d.updates[j])
		})
	},
	exportRows: func(db *gorm.DB) ([][]any, error) {
		var list []models.Installation
		err := db.Preload("Device").Preload("Institution").Preload("ConnectedCore").
			Order("install_date, id").Find(&list).Error
		if err != nil {
			return nil, err
		}
		rows := make([][]any, 0, len(list))
		for _, m := range list {
			core := ""
			if m.ConnectedCore != nil {
				core = m.ConnectedCore.SerialNumber
			}
			rows = append(rows, []any{
				m.Device.SerialNumber, m.Institution.Name,
				dates.Format(m.InstallDate), dates.FormatPtr(m.UninstallDate), core,
			})
		}
		return rows, nil
	},
}

func closes(c change[models.Installation]) bool {
	return c.old.UninstallDate == nil && c.new.UninstallDate != nil
}

// ---- maintenance

type maintenanceRow struct {
	Serial    string
	Date      time.Time
	Personnel string
	Notes     string
}

var maintenance = &collection[maintenanceRow, models.Maintenance]{
	name:   "maintenance",
	header: []string{"serial_number", "date", "personnel", "notes"},
	parseRow: func(cells []string) (maintenanceRow, error) {
		r := maintenanceRow{Serial: cell(cells, 0), Personnel: cell(cells, 2), Notes: cell(cells, 3)}
		if err := required("serial_number", r.Serial); err != nil {
			return r, err
		}
		var err error
		r.Date, err = parseDateCell("date", cell(cells, 1))
		return r, err
	},
	rowKey: func(r *maintenanceRow) string {
		return r.Serial + "|" + dates.Format(r.Date) + "|" + r.Personnel
	},
	table: table[models.Maintenance]{
		key: func(m *models.Maintenance) string {
			return fmt.Sprintf("%d|%s|%s", m.DeviceID, dates.Format(m.Date), m.Personnel)
		},
		id:      func(m *models.Maintenance) uint { return m.ID },
		setID:   func(m *models.Maintenance, id uint) { m.ID = id },
		same:    func(a, b *models.Maintenance) bool { return a.Notes == b.Notes },
		columns: []string{"notes"},
	},
	load: findAll[models.Maintenance],
	build: func(refs *refs, r *maintenanceRow) (models.Maintenance, error) {
		device, err := refs.device(r.Serial)
		if err != nil {
			return models.Maintenance{}, err
		}
		return models.Maintenance{DeviceID: device.ID, Date: r.Date, Personnel: r.Personnel, Notes: r.Notes}, nil
	},
	exportRows: func(db *gorm.DB) ([][]any, error) {
		var list []models.Maintenance
		if err := db.Preload("Device").Order("date, id").Find(&list).Error; err != nil {
			return nil, err
		}
		rows := make([][]any, 0, len(list))
		for _, m := range list {
			rows = append(rows, []any{m.Device.SerialNumber, dates.Format(m.Date), m.Personnel, m.Notes})
		}
		return rows, nil
	},
}

// ---- faults

type faultRow struct {
	Serial       string
	FaultDate    time.Time
	Technician   string
	InitialNotes string
	ClosingNotes string
	ClosedDate   *time.Time
}

var faults = &collection[faultRow, models.Fault]{
	name:   "faults",
	header: []string{"serial_number", "fault_date", "technician", "initial_notes", "closing_notes", "closed_date"},
	parseRow: func(cells []string) (faultRow, error) {
		r := faultRow{
			Serial:       cell(cells, 0),
			Technician:   cell(cells, 2),
			InitialNotes: cell(cells, 3),
			ClosingNotes: cell(cells, 4),
		}
		if err := required("serial_number", r.Serial); err != nil {
			return r, err
		}
		var err error
		if r.FaultDate, err = parseDateCell("fault_date", cell(cells, 1)); err != nil {
			return r, err
		}
		if r.ClosedDate, err = parseOptionalDateCell("closed_date", cell(cells, 5)); err != nil {
			return r, err
		}
		if r.ClosedDate != nil && r.ClosedDate.Before(r.FaultDate) {
			return r, fmt.Errorf("closed_date arıza tarihinden önce olamaz")
		}
		return r, nil
	},
	rowKey: func(r *faultRow) string {
		return r.Serial + "|" + dates.Format(r.FaultDate) + "|" + r.Technician
	},
	table: table[models.Fault]{
		key: func(m *models.Fault) string {
			return fmt.Sprintf("%d|%s|%s", m.DeviceID, dates.Format(m.FaultDate), m.Technician)
		},
		id:    func(m *models.Fault) uint { return m.ID },
		setID: func(m *models.Fault, id uint) { m.ID = id },
		same: func(a, b *models.Fault) bool {
			return a.InitialNotes == b.InitialNotes && a.ClosingNotes == b.ClosingNotes && sameDate(a.ClosedDate, b.ClosedDate)
		},
		columns: []string{"initial_notes", "closing_notes", "closed_date"},
	},
	load: findAll[models.Fault],
	build: func(refs *refs, r *faultRow) (models.Fault, error) {
		device, err := refs.device(r.Serial)
		if err != nil {
			return models.Fault{}, err
		}
		return models.Fault{
			DeviceID:     device.ID,
			FaultDate:    r.FaultDate,
			Technician:   r.Technician,
			InitialNotes: r.InitialNotes,
			ClosingNotes: r.ClosingNotes,
			ClosedDate:   r.ClosedDate,
		}, nil
	},
	exportRows: func(db *gorm.DB) ([][]any, error) {
		var list []models.Fault
		if err := db.Preload("Device").Order("fault_date, id").Find(&list).Error; err != nil {
			return nil, err
		}
		rows := make([][]any, 0, len(list))
		for _, m := range list {
			rows = append(rows, []any{
				m.Device.SerialNumber, dates.Format(m.FaultDate), m.Technician,
				m.InitialNotes, m.ClosingNotes, dates.FormatPtr(m.ClosedDate),
			})
		}
		return rows, nil
	},
}

// ---- institution-notes

type noteRow struct {
	Institution string
	NoteDate    time.Time
	Text        string
}

var institutionNotes = &collection[noteRow, models.InstitutionNote]{
	name:   "institution-notes",
	header: []string{"institution", "note_date", "text"},
	parseRow: func(cells []string) (noteRow, error) {
		r := noteRow{Institution: cell(cells, 0), Text: cell(cells, 2)}
		if err := required("institution", r.Institution); err != nil {
			return r, err
		}
		if err := required("text", r.Text); err != nil {
			return r, err
		}
		var err error
		r.NoteDate, err = parseDateCell("note_date", cell(cells, 1))
		return r, err
	},
	rowKey: func(r *noteRow) string {
		return r.Institution + "|" + dates.Format(r.NoteDate) + "|" + r.Text
	},
	// Tüm kolonlar anahtarın parçası; notlar sadece eklenir ya da silinir.
	table: table[models.InstitutionNote]{
		key: func(m *models.InstitutionNote) string {
			return fmt.Sprintf("%d|%s|%s", m.InstitutionID, dates.Format(m.NoteDate), m.Text)
		},
		id:      func(m *models.InstitutionNote) uint { return m.ID },
		setID:   func(m *models.InstitutionNote, id uint) { m.ID = id },
		same:    func(a, b *models.InstitutionNote) bool { return true },
		columns: []string{"text"},
	},
	load: findAll[models.InstitutionNote],
	build: func(refs *refs, r *noteRow) (models.InstitutionNote, error) {
		id, err := refs.institution(r.Institution)
		if err != nil {
			return models.InstitutionNote{}, err
		}
		return models.InstitutionNote{InstitutionID: id, NoteDate: r.NoteDate, Text: r.Text}, nil
	},
	exportRows: func(db *gorm.DB) ([][]any, error) {
		var list []models.InstitutionNote
		if err := db.Preload("Institution").Order("note_date, id").Find(&list).Error; err != nil {
			return nil, err
		}
		rows := make([][]any, 0, len(list))
		for _, m := range list {
			rows = append(rows, []any{m.Institution.Name, dates.Format(m.NoteDate), m.Text})
		}
		return rows, nil
	},
}

func init() {
	register(institutions)
	register(deviceTypes)
	register(deviceRecords)
	register(installations)
	register(maintenance)
	register(faults)
	register(institutionNotes)
}
