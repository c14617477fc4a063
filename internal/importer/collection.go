package importer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/apperr"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/models"

	"gorm.io/gorm"
)

// Collection içe/dışa aktarılabilen bir varlık koleksiyonu.
// Kolon sırası içe aktarma ve dışa aktarmada aynıdır.
type Collection interface {
	Name() string
	Header() []string
	Export(ctx context.Context, db *gorm.DB) ([][]any, error)
	parse(table [][]string) (Prepared, error)
}

// collection R: dosya satırının tipli hali, M: veritabanı modeli.
type collection[R any, M any] struct {
	name     string
	header   []string
	parseRow func(cells []string) (R, error)
	rowKey   func(*R) string
	validate func(recs []R, lines []int) error

	table table[M]
	load  func(tx *gorm.DB) ([]M, error)
	build func(refs *refs, rec *R) (M, error)

	order      func(d *diff[M])
	after      func(tx *gorm.DB, d *diff[M], opts Options) error
	exportRows func(db *gorm.DB) ([][]any, error)
}

func (c *collection[R, M]) Name() string     { return c.name }
func (c *collection[R, M]) Header() []string { return c.header }

func (c *collection[R, M]) Export(ctx context.Context, db *gorm.DB) ([][]any, error) {
	rows, err := c.exportRows(db.WithContext(ctx))
	if err != nil {
		return nil, apperr.Store("dışa aktarma verisi okunamadı", err)
	}
	return rows, nil
}

func (c *collection[R, M]) parse(table [][]string) (Prepared, error) {
	p := &prepared[R, M]{c: c}
	firstLine := make(map[string]int, len(table))

	for i, cells := range table {
		line := i + 2 // 1. satır başlık
		if blankRow(cells) {
			continue
		}
		rec, err := c.parseRow(cells)
		if err != nil {
			return nil, apperr.Validation("%s satır %d: %v", c.name, line, err)
		}
		k := c.rowKey(&rec)
		if prev, dup := firstLine[k]; dup {
			return nil, apperr.Validation("%s satır %d: %q anahtarı %d. satırda da var", c.name, line, k, prev)
		}
		firstLine[k] = line
		p.recs = append(p.recs, rec)
		p.lines = append(p.lines, line)
	}

	if c.validate != nil {
		if err := c.validate(p.recs, p.lines); err != nil {
			return nil, err
		}
	}
	return p, nil
}

type prepared[R any, M any] struct {
	c     *collection[R, M]
	recs  []R
	lines []int
}

func (p *prepared[R, M]) Len() int { return len(p.recs) }

func (p *prepared[R, M]) apply(tx *gorm.DB, opts Options, sum *Summary) error {
	current, err := p.c.load(tx)
	if err != nil {
		return err
	}

	// Referanslar önce çözülür; tek bir hata tüm içe aktarmayı durdurur.
	refs := newRefs(tx)
	wanted := make([]M, 0, len(p.recs))
	for i := range p.recs {
		m, err := p.c.build(refs, &p.recs[i])
		if err != nil {
			if errors.Is(err, apperr.ErrValidation) {
				return apperr.Validation("%s satır %d: %s", p.c.name, p.lines[i], apperr.Message(err))
			}
			return err
		}
		wanted = append(wanted, m)
	}

	d, err := computeDiff(p.c.table, current, wanted)
	if err != nil {
		return err
	}
	if p.c.order != nil {
		p.c.order(d)
	}
	if err := applyDiff(tx, p.c.table, d, opts.BatchSize, sum); err != nil {
		return err
	}
	if p.c.after != nil {
		return p.c.after(tx, d, opts)
	}
	return nil
}

// refs dosyadaki isim/seri numarası referanslarını transaction içinde çözer.
type refs struct {
	tx           *gorm.DB
	deviceTypes  map[string]*models.DeviceType
	institutions map[string]uint
	devices      map[string]*models.DeviceRecord
}

func newRefs(tx *gorm.DB) *refs {
	return &refs{tx: tx}
}

func (r *refs) deviceType(name string) (*models.DeviceType, error) {
	if r.deviceTypes == nil {
		var list []models.DeviceType
		if err := r.tx.Find(&list).Error; err != nil {
			return nil, err
		}
		r.deviceTypes = make(map[string]*models.DeviceType, len(list))
		for i := range list {
			r.deviceTypes[list[i].Name] = &list[i]
		}
	}
	dt, ok := r.deviceTypes[name]
	if !ok {
		return nil, apperr.Validation("cihaz tipi bulunamadı: %q", name)
	}
	return dt, nil
}

func (r *refs) institution(name string) (uint, error) {
	if r.institutions == nil {
		var list []models.Institution
		if err := r.tx.Select("id", "name").Find(&list).Error; err != nil {
			return 0, err
		}
		r.institutions = make(map[string]uint, len(list))
		for _, inst := range list {
			r.institutions[inst.Name] = inst.ID
		}
	}
	id, ok := r.institutions[name]
	if !ok {
		return 0, apperr.Validation("kurum bulunamadı: %q", name)
	}
	return id, nil
}

func (r *refs) device(serial string) (*models.DeviceRecord, error) {
	if r.devices == nil {
		var list []models.DeviceRecord
		if err := r.tx.Preload("DeviceType").Find(&list).Error; err != nil {
			return nil, err
		}
		r.devices = make(map[string]*models.DeviceRecord, len(list))
		for i := range list {
			r.devices[list[i].SerialNumber] = &list[i]
		}
	}
	d, ok := r.devices[serial]
	if !ok {
		return nil, apperr.Validation("cihaz bulunamadı: %q", serial)
	}
	return d, nil
}

var registry = map[string]Collection{}

func register(c Collection) {
	registry[c.Name()] = c
}

// Lookup adıyla koleksiyonu bulur.
func Lookup(name string) (Collection, error) {
	c, ok := registry[name]
	if !ok {
		return nil, apperr.NotFound("bilinmeyen koleksiyon: %s", name)
	}
	return c, nil
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func parseInt(field, s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("%s tam sayı olmalı: %q", field, s)
	}
	if f < math.MinInt32 || f > math.MaxInt32 {
		return 0, fmt.Errorf("%s aralık dışında: %q", field, s)
	}
	return int(f), nil
}

func parseNonNegative(field, s string) (int, error) {
	v, err := parseInt(field, s)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("%s negatif olamaz: %d", field, v)
	}
	return v, nil
}

func parseBool(field, s string) (bool, error) {
	switch strings.ToLower(s) {
	case "", "0", "false", "hayır", "hayir", "no", "h":
		return false, nil
	case "1", "true", "evet", "yes", "e", "x":
		return true, nil
	}
	return false, fmt.Errorf("%s evet/hayır olmalı: %q", field, s)
}

func parsePrice(field, s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("%s geçersiz: %q", field, s)
	}
	return roundPrice(f), nil
}

func roundPrice(f float64) float64 {
	return math.Round(f*100) / 100
}

func required(field, s string) error {
	if s == "" {
		return fmt.Errorf("%s zorunlu", field)
	}
	return nil
}

func sameUintPtr(a, b *uint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
