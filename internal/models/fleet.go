package models

import "time"

type Institution struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Name         string `gorm:"size:255;not null;uniqueIndex" json:"name"`
	City         string `gorm:"size:100" json:"city"`
	ContactName  string `gorm:"size:200" json:"contact_name"`
	ContactPhone string `gorm:"size:20" json:"contact_phone"`
}

type DeviceType struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Name         string `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Category     string `gorm:"size:100" json:"category"`
	CoreRequired bool   `gorm:"not null;default:false" json:"core_required"` // Core'a bağlı çalışan cihaz
	IsCore       bool   `gorm:"not null;default:false" json:"is_core"`
}

// DeviceRecord fiziksel cihaz. Asıl konum açık Installation kaydıdır;
// InstitutionID sadece kurulum kaydı olmayan cihazlar için yedek bilgi.
type DeviceRecord struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	DeviceTypeID  uint         `gorm:"not null;index" json:"device_type_id"`
	DeviceType    DeviceType   `gorm:"constraint:OnDelete:CASCADE" json:"device_type"`
	SerialNumber  string       `gorm:"size:100;not null;uniqueIndex" json:"serial_number"`
	InstitutionID *uint        `gorm:"index" json:"institution_id"`
	Institution   *Institution `gorm:"constraint:OnDelete:SET NULL" json:"institution,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

// Installation cihazın bir kurumdaki kurulum dönemi. UninstallDate boşsa hâlen kurulu.
// Cihaz başına en fazla bir açık kurulum olabilir (kısmi unique index ile de korunur).
type Installation struct {
	ID              uint          `gorm:"primaryKey" json:"id"`
	DeviceID        uint          `gorm:"not null;index;uniqueIndex:idx_installations_key,priority:1" json:"device_id"`
	Device          DeviceRecord  `gorm:"foreignKey:DeviceID;constraint:OnDelete:CASCADE" json:"-"`
	InstitutionID   uint          `gorm:"not null;index" json:"institution_id"`
	Institution     Institution   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	InstallDate     time.Time     `gorm:"type:date;not null;index;uniqueIndex:idx_installations_key,priority:2" json:"install_date"`
	UninstallDate   *time.Time    `gorm:"type:date" json:"uninstall_date"`
	ConnectedCoreID *uint         `gorm:"index" json:"connected_core_id"`
	ConnectedCore   *DeviceRecord `gorm:"foreignKey:ConnectedCoreID;constraint:OnDelete:SET NULL" json:"-"`
}

func (i *Installation) IsOpen() bool {
	return i.UninstallDate == nil
}

// Maintenance (cihaz, tarih, personel) ile tekildir; içe aktarma anahtarı budur.
type Maintenance struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	DeviceID  uint         `gorm:"not null;index;uniqueIndex:idx_maintenance_key,priority:1" json:"device_id"`
	Device    DeviceRecord `gorm:"foreignKey:DeviceID;constraint:OnDelete:CASCADE" json:"-"`
	Date      time.Time    `gorm:"type:date;not null;uniqueIndex:idx_maintenance_key,priority:2" json:"date"`
	Personnel string       `gorm:"size:255;uniqueIndex:idx_maintenance_key,priority:3" json:"personnel"` // virgülle ayrılmış isimler
	Notes     string       `gorm:"type:text" json:"notes"`
}

type Fault struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	DeviceID     uint         `gorm:"not null;index;uniqueIndex:idx_faults_key,priority:1" json:"device_id"`
	Device       DeviceRecord `gorm:"foreignKey:DeviceID;constraint:OnDelete:CASCADE" json:"-"`
	FaultDate    time.Time    `gorm:"type:date;not null;uniqueIndex:idx_faults_key,priority:2" json:"fault_date"`
	Technician   string       `gorm:"size:255;uniqueIndex:idx_faults_key,priority:3" json:"technician"`
	InitialNotes string       `gorm:"type:text" json:"initial_notes"`
	ClosingNotes string       `gorm:"type:text" json:"closing_notes"`
	ClosedDate   *time.Time   `gorm:"type:date" json:"closed_date"`
}

func (f *Fault) Status() string {
	if f.ClosedDate == nil {
		return "open"
	}
	return "closed"
}

type InstitutionNote struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	InstitutionID uint        `gorm:"not null;index;uniqueIndex:idx_institution_notes_key,priority:1" json:"institution_id"`
	Institution   Institution `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	UserID        *uint       `gorm:"index" json:"user_id"`
	User          *User       `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	NoteDate      time.Time   `gorm:"type:date;not null;uniqueIndex:idx_institution_notes_key,priority:2" json:"note_date"`
	Text          string      `gorm:"type:text;not null;uniqueIndex:idx_institution_notes_key,priority:3" json:"text"`
}

// DevicePartUsage bir cihazda kullanılan parça. Oluşturulması kullanıcı stoğunu düşer.
type DevicePartUsage struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	ProductID uint         `gorm:"not null;index" json:"product_id"`
	Product   Product      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	DeviceID  uint         `gorm:"not null;index" json:"device_id"`
	Device    DeviceRecord `gorm:"foreignKey:DeviceID;constraint:OnDelete:CASCADE" json:"-"`
	UserID    *uint        `gorm:"index" json:"user_id"`
	User      *User        `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	Quantity  int          `gorm:"not null;default:1" json:"quantity"`
	UsedAt    time.Time    `gorm:"not null;index" json:"used_at"`
}
