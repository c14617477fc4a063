package importer

import (
	"fmt"
	"time"

	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/models"

	"gorm.io/gorm"
)

type productRow struct {
	PartCode    string
	Name        string
	Cabinet     string
	Shelf       string
	Quantity    int
	MinLimit    int
	OrderPlaced bool
}

var productTable = table[models.Product]{
	key:   func(p *models.Product) string { return p.PartCode },
	id:    func(p *models.Product) uint { return p.ID },
	setID: func(p *models.Product, id uint) { p.ID = id },
	same: func(a, b *models.Product) bool {
		return a.Name == b.Name && a.Cabinet == b.Cabinet && a.Shelf == b.Shelf &&
			a.Quantity == b.Quantity && a.MinLimit == b.MinLimit && a.OrderPlaced == b.OrderPlaced
	},
	columns: []string{"name", "cabinet", "shelf", "quantity", "min_limit", "order_placed", "updated_at"},
}

var products = &collection[productRow, models.Product]{
	name:   "products",
	header: []string{"part_code", "name", "cabinet", "shelf", "quantity", "min_limit", "order_placed"},
	parseRow: func(cells []string) (productRow, error) {
		r := productRow{
			PartCode: cell(cells, 0),
			Name:     cell(cells, 1),
			Cabinet:  cell(cells, 2),
			Shelf:    cell(cells, 3),
		}
		if err := required("part_code", r.PartCode); err != nil {
			return r, err
		}
		if err := required("name", r.Name); err != nil {
			return r, err
		}
		var err error
		if r.Quantity, err = parseNonNegative("quantity", cell(cells, 4)); err != nil {
			return r, err
		}
		if r.MinLimit, err = parseNonNegative("min_limit", cell(cells, 5)); err != nil {
			return r, err
		}
		if r.OrderPlaced, err = parseBool("order_placed", cell(cells, 6)); err != nil {
			return r, err
		}
		return r, nil
	},
	rowKey: func(r *productRow) string { return r.PartCode },
	table:  productTable,
	load: func(tx *gorm.DB) ([]models.Product, error) {
		var list []models.Product
		err := tx.Find(&list).Error
		return list, err
	},
	build: func(_ *refs, r *productRow) (models.Product, error) {
		return models.Product{
			PartCode:    r.PartCode,
			Name:        r.Name,
			Cabinet:     r.Cabinet,
			Shelf:       r.Shelf,
			Quantity:    r.Quantity,
			MinLimit:    r.MinLimit,
			OrderPlaced: r.OrderPlaced,
			UpdatedAt:   time.Now(),
		}, nil
	},
	after:      productLedger,
	exportRows: exportProducts,
}

// productLedger içe aktarmanın ana stoğa etkisini hareket geçmişine yazar.
func productLedger(tx *gorm.DB, d *diff[models.Product], opts Options) error {
	now := time.Now().UTC()
	var txs []models.StockTransaction

	for i := range d.creates {
		p := &d.creates[i]
		if p.Quantity <= 0 {
			continue
		}
		txs = append(txs, models.StockTransaction{
			Type:            models.TxIn,
			ProductID:       &p.ID,
			PartCode:        p.PartCode,
			Quantity:        p.Quantity,
			UserID:          opts.UserID,
			Timestamp:       now,
			Description:     "İçe aktarma ile yeni ürün",
			CurrentQuantity: &p.Quantity,
		})
	}
	for _, u := range d.updates {
		delta := u.new.Quantity - u.old.Quantity
		if delta == 0 {
			continue
		}
		qty := delta
		if qty < 0 {
			qty = -qty
		}
		txs = append(txs, models.StockTransaction{
			Type:            models.TxAdjust,
			ProductID:       &u.new.ID,
			PartCode:        u.new.PartCode,
			Quantity:        qty,
			UserID:          opts.UserID,
			Timestamp:       now,
			Description:     fmt.Sprintf("İçe aktarma ile stok ayarı: %d → %d (%+d)", u.old.Quantity, u.new.Quantity, delta),
			CurrentQuantity: &u.new.Quantity,
		})
	}

	if len(txs) == 0 {
		return nil
	}
	return tx.Omit("Product", "User", "TargetUser").CreateInBatches(&txs, opts.BatchSize).Error
}

func exportProducts(db *gorm.DB) ([][]any, error) {
	var list []models.Product
	if err := db.Order("part_code").Find(&list).Error; err != nil {
		return nil, err
	}
	rows := make([][]any, 0, len(list))
	for _, p := range list {
		rows = append(rows, []any{p.PartCode, p.Name, p.Cabinet, p.Shelf, p.Quantity, p.MinLimit, p.OrderPlaced})
	}
	return rows, nil
}

type externalProductRow struct {
	PartCode  string
	Name      string
	Devices   string
	UnitPrice float64
}

var externalProducts = &collection[externalProductRow, models.ExternalProduct]{
	name:   "external-products",
	header: []string{"part_code", "name", "devices", "unit_price"},
	parseRow: func(cells []string) (externalProductRow, error) {
		r := externalProductRow{
			PartCode: cell(cells, 0),
			Name:     cell(cells, 1),
			Devices:  cell(cells, 2),
		}
		if err := required("part_code", r.PartCode); err != nil {
			return r, err
		}
		if err := required("name", r.Name); err != nil {
			return r, err
		}
		var err error
		r.UnitPrice, err = parsePrice("unit_price", cell(cells, 3))
		return r, err
	},
	rowKey: func(r *externalProductRow) string { return r.PartCode },
	table: table[models.ExternalProduct]{
		key:   func(p *models.ExternalProduct) string { return p.PartCode },
		id:    func(p *models.ExternalProduct) uint { return p.ID },
		setID: func(p *models.ExternalProduct, id uint) { p.ID = id },
		same: func(a, b *models.ExternalProduct) bool {
			return a.Name == b.Name && a.Devices == b.Devices && roundPrice(a.UnitPrice) == roundPrice(b.UnitPrice)
		},
		columns: []string{"name", "devices", "unit_price"},
	},
	load: func(tx *gorm.DB) ([]models.ExternalProduct, error) {
		var list []models.ExternalProduct
		err := tx.Find(&list).Error
		return list, err
	},
	build: func(_ *refs, r *externalProductRow) (models.ExternalProduct, error) {
		return models.ExternalProduct{PartCode: r.PartCode, Name: r.Name, Devices: r.Devices, UnitPrice: r.UnitPrice}, nil
	},
	exportRows: func(db *gorm.DB) ([][]any, error) {
		var list []models.ExternalProduct
		if err := db.Order("part_code").Find(&list).Error; err != nil {
			return nil, err
		}
		rows := make([][]any, 0, len(list))
		for _, p := range list {
			rows = append(rows, []any{p.PartCode, p.Name, p.Devices, roundPrice(p.UnitPrice)})
		}
		return rows, nil
	},
}

func init() {
	register(products)
	register(externalProducts)
}
