package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/database"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/importer"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/inventory"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/mailer"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/report"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/settings"

	"github.com/spf13/cobra"
)

var (
	importFile   string
	importBatch  int
	exportOutput string
	exportFormat string
	reportOutput string
	reportEmail  bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Veritabanı şemasını oluşturur/günceller",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Şema güncel.")
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <collection>",
	Short: "Tablo dosyasını koleksiyonla senkronize eder (boyut sınırı yok)",
	Long:  "Koleksiyonlar: " + strings.Join(importer.Names(), ", "),
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		coll, err := importer.Lookup(args[0])
		if err != nil {
			return err
		}
		f, err := os.Open(importFile)
		if err != nil {
			return fmt.Errorf("dosya açılamadı: %w", err)
		}
		defer f.Close()

		table, err := importer.ReadTable(f, importer.FormatFromName(importFile))
		if err != nil {
			return err
		}

		batch := importBatch
		if batch <= 0 {
			batch = cfg.ImportBatchSize
		}
		sum, err := importer.Run(cmd.Context(), database.DB, coll, table, importer.Options{
			BatchSize: batch,
			UserName:  "stokctl",
			Mode:      "cli",
		})
		if err != nil {
			return err
		}

		fmt.Printf(`
=== %s ===
Satır:        %d
Eklendi:      %d
Güncellendi:  %d
Değişmedi:    %d
Silindi:      %d
`, sum.Collection, sum.TotalRows, sum.Created, sum.Updated, sum.Unchanged, sum.Deleted)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <collection>",
	Short: "Koleksiyonu xlsx veya csv olarak dışa aktarır",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		coll, err := importer.Lookup(args[0])
		if err != nil {
			return err
		}
		format := importer.Format(exportFormat)
		if format == "" {
			format = importer.FormatFromName(exportOutput)
		}

		rows, err := coll.Export(cmd.Context(), database.DB)
		if err != nil {
			return err
		}
		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("dosya oluşturulamadı: %w", err)
		}
		defer f.Close()

		if err := importer.WriteTable(f, format, coll.Name(), coll.Header(), rows); err != nil {
			return err
		}
		fmt.Printf("%d satır yazıldı: %s\n", len(rows), exportOutput)
		return nil
	},
}

var criticalCmd = &cobra.Command{
	Use:   "critical",
	Short: "Kritik seviyedeki ürünleri listeler",
	RunE: func(cmd *cobra.Command, args []string) error {
		products, err := inventory.CriticalProducts(cmd.Context(), database.DB)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PARÇA\tAD\tMİKTAR\tMİN\tSİPARİŞ")
		for _, p := range products {
			order := "-"
			if p.OrderPlaced {
				order = "verildi"
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", p.PartCode, p.Name, p.Quantity, p.MinLimit, order)
		}
		return w.Flush()
	},
}

var reportCmd = &cobra.Command{
	Use:   "report <critical|stock>",
	Short: "Stok raporunu xlsx olarak yazar veya ayarlardaki adrese e-postalar",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := report.ParseKind(args[0])
		if err != nil {
			return err
		}
		if reportEmail {
			s := &report.Sender{DB: database.DB, Mailer: mailer.New(cfg), Defaults: settings.DefaultsFrom(cfg)}
			sent, err := s.Send(cmd.Context(), kind)
			if err != nil {
				return err
			}
			fmt.Printf("%d satır %s adresine gönderildi (%s)\n", sent.Rows, sent.To, sent.File)
			return nil
		}

		file, err := report.Build(cmd.Context(), database.DB, kind, time.Now())
		if err != nil {
			return err
		}
		out := reportOutput
		if out == "" {
			out = file.Name
		}
		if err := os.WriteFile(out, file.Data, 0o644); err != nil {
			return fmt.Errorf("dosya yazılamadı: %w", err)
		}
		fmt.Printf("%d satır yazıldı: %s\n", file.Rows, out)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVarP(&importFile, "file", "f", "", "xlsx veya csv dosyası (zorunlu)")
	importCmd.MarkFlagRequired("file")
	importCmd.Flags().IntVar(&importBatch, "batch-size", 0, "Toplu yazma boyutu (varsayılan IMPORT_BATCH_SIZE)")

	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Çıktı dosyası (zorunlu)")
	exportCmd.MarkFlagRequired("output")
	exportCmd.Flags().StringVar(&exportFormat, "format", "", "xlsx | csv (varsayılan: dosya uzantısı)")

	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "Çıktı dosyası (varsayılan: rapor adı)")
	reportCmd.Flags().BoolVar(&reportEmail, "email", false, "Dosya yerine e-posta ile gönder")

	rootCmd.AddCommand(migrateCmd, importCmd, exportCmd, criticalCmd, reportCmd)
}
