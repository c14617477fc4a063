package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/apperr"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/dates"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/fleet"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/models"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func csvTable(t *testing.T, lines ...string) [][]string {
	t.Helper()
	body := "header\n" + strings.Join(lines, "\n")
	table, err := ReadTable(strings.NewReader(body), FormatCSV)
	require.NoError(t, err)
	return table
}

func runCSV(t *testing.T, db *gorm.DB, name string, lines ...string) (*Summary, error) {
	t.Helper()
	c, err := Lookup(name)
	require.NoError(t, err)
	return Run(context.Background(), db, c, csvTable(t, lines...), Options{Mode: "test"})
}

func mustRun(t *testing.T, db *gorm.DB, name string, lines ...string) *Summary {
	t.Helper()
	sum, err := runCSV(t, db, name, lines...)
	require.NoError(t, err)
	return sum
}

func count[M any](t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(new(M)).Count(&n).Error)
	return n
}

func seedFleet(t *testing.T, db *gorm.DB) {
	t.Helper()
	mustRun(t, db, "institutions",
		"Ankara Şehir,Ankara,Ayşe,05550000000",
		"İzmir Devlet,İzmir,,",
	)
	mustRun(t, db, "device-types",
		"Pompa,Infüzyon,0,0",
		"Analizör,Biyokimya,1,0",
		"Core Ünite,Biyokimya,0,1",
	)
	mustRun(t, db, "device-records",
		"D1,Pompa,Ankara Şehir",
		"D2,Pompa,",
		"D3,Pompa,İzmir Devlet",
		"A1,Analizör,",
		"C1,Core Ünite,",
	)
}

func TestProductImportWritesLedgerRows(t *testing.T) {
	db := testutil.SetupTestDB(t)

	sum := mustRun(t, db, "products",
		"X1,Filtre,A,1,10,2,0",
		"X2,Conta,A,2,0,1,evet",
	)
	assert.Equal(t, Summary{Collection: "products", TotalRows: 2, Created: 2}, *sum)

	var txs []models.StockTransaction
	require.NoError(t, db.Find(&txs).Error)
	require.Len(t, txs, 1)
	assert.Equal(t, models.TxIn, txs[0].Type)
	assert.Equal(t, "X1", txs[0].PartCode)
	assert.Equal(t, 10, txs[0].Quantity)

	var x2 models.Product
	require.NoError(t, db.First(&x2, "part_code = ?", "X2").Error)
	assert.True(t, x2.OrderPlaced)

	// miktar değişikliği ADJUST olarak, mutlak farkla yazılır
	sum = mustRun(t, db, "products",
		"X1,Filtre,A,1,4,2,0",
		"X2,Conta,A,2,0,1,evet",
	)
	assert.Equal(t, 1, sum.Updated)
	assert.Equal(t, 1, sum.Unchanged)

	var adjust models.StockTransaction
	require.NoError(t, db.Where("transaction_type = ?", models.TxAdjust).First(&adjust).Error)
	assert.Equal(t, 6, adjust.Quantity)
	assert.Contains(t, adjust.Description, "-6")
	require.NotNil(t, adjust.CurrentQuantity)
	assert.Equal(t, 4, *adjust.CurrentQuantity)
}

func TestEmptyUploadKeepsExistingRows(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.CreateProduct(t, db, "X1", 5, 1)

	_, err := runCSV(t, db, "products", ",,,,,,", "")
	assert.ErrorIs(t, err, apperr.ErrReconciliationGuard)
	assert.EqualValues(t, 1, count[models.Product](t, db))

	var logs int64
	require.NoError(t, db.Model(&models.AuditLog{}).Count(&logs).Error)
	assert.Zero(t, logs)
}

func TestDuplicateKeyRejectedBeforeWrite(t *testing.T) {
	db := testutil.SetupTestDB(t)

	_, err := runCSV(t, db, "products", "X1,Filtre,,,1,0,0", "X1,Filtre 2,,,1,0,0")
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, apperr.Message(err), "satır 3")
	assert.Zero(t, count[models.Product](t, db))
}

func TestInvalidCellReportsLine(t *testing.T) {
	db := testutil.SetupTestDB(t)

	_, err := runCSV(t, db, "products", "X1,Filtre,,,1,0,0", "X2,Conta,,,-3,0,0")
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, apperr.Message(err), "satır 3")
	assert.Zero(t, count[models.Product](t, db))
}

func TestOversizedSyncImportRejected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	c, err := Lookup("products")
	require.NoError(t, err)

	_, err = Run(context.Background(), db, c, csvTable(t, "X1,A,,,1,0,0", "X2,B,,,1,0,0"), Options{SyncRowLimit: 1})
	assert.ErrorIs(t, err, apperr.ErrOversizedImport)
	assert.Zero(t, count[models.Product](t, db))
}

func TestInstallationsReconcileDeletesMissingRows(t *testing.T) {
	db := testutil.SetupTestDB(t)
	seedFleet(t, db)

	sum := mustRun(t, db, "installations",
		"D1,Ankara Şehir,2024-01-10,,",
		"D2,Ankara Şehir,2024-01-11,,",
		"D3,İzmir Devlet,2024-01-12,,",
	)
	assert.Equal(t, 3, sum.Created)

	// D3 dosyadan çıkarıldı; farklı tarih biçimi aynı anahtarı üretir
	sum = mustRun(t, db, "installations",
		"D1,Ankara Şehir,10.01.2024,,",
		"D2,Ankara Şehir,2024-01-11,,",
	)
	assert.Equal(t, 1, sum.Deleted)
	assert.Equal(t, 2, sum.Unchanged)
	assert.Zero(t, sum.Created)
	assert.EqualValues(t, 2, count[models.Installation](t, db))
}

func TestInstallationUpdatesCloseBeforeOpening(t *testing.T) {
	db := testutil.SetupTestDB(t)
	seedFleet(t, db)

	mustRun(t, db, "installations",
		"D1,Ankara Şehir,2023-01-01,2023-06-01,",
		"D1,İzmir Devlet,2024-01-01,,",
	)

	// eski dönem yeniden açılır, açık olan kapanır
	sum := mustRun(t, db, "installations",
		"D1,Ankara Şehir,2023-01-01,,",
		"D1,İzmir Devlet,2024-01-01,2024-03-01,",
	)
	assert.Equal(t, 2, sum.Updated)

	var open []models.Installation
	require.NoError(t, db.Where("uninstall_date IS NULL").Find(&open).Error)
	require.Len(t, open, 1)
	assert.Equal(t, "2023-01-01", open[0].InstallDate.Format("2006-01-02"))
}

func TestTwoOpenInstallationsForOneDeviceRejected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	seedFleet(t, db)

	_, err := runCSV(t, db, "installations",
		"D1,Ankara Şehir,2024-01-01,,",
		"D1,İzmir Devlet,2024-02-01,,",
	)
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Zero(t, count[models.Installation](t, db))
}

func TestUnresolvedReferenceAbortsWholeImport(t *testing.T) {
	db := testutil.SetupTestDB(t)
	seedFleet(t, db)
	mustRun(t, db, "installations", "D1,Ankara Şehir,2024-01-10,,")

	_, err := runCSV(t, db, "installations",
		"D2,Ankara Şehir,2024-01-11,,",
		"YOK,Ankara Şehir,2024-01-12,,",
	)
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, apperr.Message(err), "YOK")

	// önceki durum korunur
	var rows []models.Installation
	require.NoError(t, db.Preload("Device").Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "D1", rows[0].Device.SerialNumber)
}

func TestInstallationCoreRules(t *testing.T) {
	db := testutil.SetupTestDB(t)
	seedFleet(t, db)

	_, err := runCSV(t, db, "installations", "A1,Ankara Şehir,2024-01-10,,")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = runCSV(t, db, "installations", "A1,Ankara Şehir,2024-01-10,,D2")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	// kapalı kurulumda core aranmaz
	sum := mustRun(t, db, "installations",
		"A1,Ankara Şehir,2023-01-10,2023-05-01,",
		"A1,Ankara Şehir,2024-01-10,,C1",
	)
	assert.Equal(t, 2, sum.Created)
}

func TestExportReimportIsIdempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	seedFleet(t, db)
	mustRun(t, db, "products", "X1,Filtre,A,1,10,2,1", "X2,Conta,,,0,0,0")
	mustRun(t, db, "external-products", "E1,Pompa seti,\"Pompa, Analizör\",12.5")
	mustRun(t, db, "installations", "D1,Ankara Şehir,2024-01-10,,", "A1,İzmir Devlet,2024-01-10,,C1")
	mustRun(t, db, "maintenance", "D1,2024-02-01,\"Ali, Veli\",Filtre değişti")
	mustRun(t, db, "faults", "D1,2024-03-01,Ali,Alarm,Kart değişti,2024-03-05", "D2,2024-03-02,Veli,Sızıntı,,")
	mustRun(t, db, "institution-notes", "Ankara Şehir,2024-04-01,Yıllık sözleşme yenilendi")

	for _, format := range []Format{FormatCSV, FormatXLSX} {
		for _, name := range Names() {
			t.Run(string(format)+"/"+name, func(t *testing.T) {
				c, err := Lookup(name)
				require.NoError(t, err)

				rows, err := c.Export(context.Background(), db)
				require.NoError(t, err)
				require.NotEmpty(t, rows)

				var buf bytes.Buffer
				require.NoError(t, WriteTable(&buf, format, name, c.Header(), rows))
				table, err := ReadTable(&buf, format)
				require.NoError(t, err)

				sum, err := Run(context.Background(), db, c, table, Options{})
				require.NoError(t, err)
				assert.Equal(t, len(rows), sum.Unchanged)
				assert.Zero(t, sum.Created+sum.Updated+sum.Deleted)
			})
		}
	}

	var adjusts int64
	require.NoError(t, db.Model(&models.StockTransaction{}).Where("transaction_type = ?", models.TxAdjust).Count(&adjusts).Error)
	assert.Zero(t, adjusts)
}

func TestImportWritesAuditLog(t *testing.T) {
	db := testutil.SetupTestDB(t)
	uid := uint(7)
	c, _ := Lookup("institutions")

	_, err := Run(context.Background(), db, c, csvTable(t, "Ankara Şehir,,,"), Options{UserID: &uid, UserName: "admin"})
	require.NoError(t, err)

	var log models.AuditLog
	require.NoError(t, db.First(&log).Error)
	assert.Equal(t, models.AuditActionImport, log.Action)
	assert.Equal(t, "institutions", log.EntityType)
	assert.Equal(t, "admin", log.UserName)

	var sum Summary
	require.NoError(t, json.Unmarshal(log.AfterData, &sum))
	assert.Equal(t, 1, sum.Created)
}

func TestSameDayReinstallKeepsExportReimportable(t *testing.T) {
	db := testutil.SetupTestDB(t)
	seedFleet(t, db)
	ctx := context.Background()

	var d1 models.DeviceRecord
	require.NoError(t, db.First(&d1, "serial_number = ?", "D1").Error)
	var ankara, izmir models.Institution
	require.NoError(t, db.First(&ankara, "name = ?", "Ankara Şehir").Error)
	require.NoError(t, db.First(&izmir, "name = ?", "İzmir Devlet").Error)

	day, err := dates.Parse("2024-01-10")
	require.NoError(t, err)

	_, _, err = fleet.CreateInstallation(ctx, db, fleet.InstallInput{DeviceID: d1.ID, InstitutionID: ankara.ID, InstallDate: day})
	require.NoError(t, err)
	_, _, err = fleet.CreateInstallation(ctx, db, fleet.InstallInput{DeviceID: d1.ID, InstitutionID: izmir.ID, InstallDate: day})
	assert.ErrorIs(t, err, apperr.ErrConflict)
	_, _, err = fleet.CreateInstallation(ctx, db, fleet.InstallInput{DeviceID: d1.ID, InstitutionID: izmir.ID, InstallDate: day.AddDate(0, 0, 1)})
	require.NoError(t, err)

	c, err := Lookup("installations")
	require.NoError(t, err)
	rows, err := c.Export(ctx, db)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, FormatCSV, "installations", c.Header(), rows))
	table, err := ReadTable(&buf, FormatCSV)
	require.NoError(t, err)

	sum, err := Run(ctx, db, c, table, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Unchanged)
	assert.EqualValues(t, 2, count[models.Installation](t, db))
}

func TestDuplicateStoredKeysStopReconcile(t *testing.T) {
	type row struct {
		id  uint
		key string
	}
	tb := table[row]{
		key:   func(r *row) string { return r.key },
		id:    func(r *row) uint { return r.id },
		setID: func(r *row, id uint) { r.id = id },
		same:  func(a, b *row) bool { return true },
	}

	_, err := computeDiff(tb, []row{{1, "D1|2024-01-10"}, {2, "D1|2024-01-10"}}, []row{{key: "D1|2024-01-10"}})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	d, err := computeDiff(tb, []row{{1, "a"}, {2, "b"}}, []row{{key: "a"}, {key: "c"}})
	require.NoError(t, err)
	assert.Equal(t, 1, d.unchanged)
	assert.Len(t, d.creates, 1)
	assert.Equal(t, []uint{2}, d.deletes)
}

func TestMaintenanceKeyIsUniqueInStore(t *testing.T) {
	db := testutil.SetupTestDB(t)
	seedFleet(t, db)
	mustRun(t, db, "maintenance", "D1,2024-02-01,Ali,Filtre değişti")

	var m models.Maintenance
	require.NoError(t, db.First(&m).Error)
	dup := models.Maintenance{DeviceID: m.DeviceID, Date: m.Date, Personnel: m.Personnel, Notes: "ikinci"}
	assert.Error(t, db.Omit("Device").Create(&dup).Error)
}
