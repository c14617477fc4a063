package importer

import (
	"bytes"
	"fmt"
	"time"

	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/apperr"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/auth"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/config"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/database"

	"github.com/gofiber/fiber/v2"
)

type CollectionResponse struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
}

// GET /api/admin/imports
func ListCollectionsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		resp := make([]CollectionResponse, 0, len(registry))
		for _, name := range Names() {
			resp = append(resp, CollectionResponse{Name: name, Columns: registry[name].Header()})
		}
		return c.JSON(resp)
	}
}

// POST /api/admin/imports/:collection  (multipart "file", ?async=true)
func ImportHandler(cfg *config.Config, runner *Runner) fiber.Handler {
	return func(c *fiber.Ctx) error {
		coll, err := Lookup(c.Params("collection"))
		if err != nil {
			return apperr.ToFiber(err)
		}

		fh, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Dosya yüklenmedi")
		}
		f, err := fh.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Dosya açılamadı")
		}
		defer f.Close()

		table, err := ReadTable(f, FormatFromName(fh.Filename))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		userID, username, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		opts := Options{
			BatchSize:    cfg.ImportBatchSize,
			SyncRowLimit: cfg.ImportSyncRowLimit,
			UserID:       &userID,
			UserName:     username,
			Mode:         "sync",
		}

		if c.QueryBool("async") {
			if runner == nil {
				return fiber.NewError(fiber.StatusServiceUnavailable, "Arka plan içe aktarma kapalı")
			}
			asyncOpts := opts
			asyncOpts.SyncRowLimit = 0
			rows, err := Prepare(coll, table, asyncOpts)
			if err != nil {
				return apperr.ToFiber(err)
			}
			job, err := runner.Submit(c.UserContext(), coll, rows, fh.Filename, opts)
			if err != nil {
				return apperr.ToFiber(err)
			}
			return c.Status(fiber.StatusAccepted).JSON(job)
		}

		sum, err := Run(c.UserContext(), database.DB, coll, table, opts)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(sum)
	}
}

// GET /api/admin/imports/jobs/:id
func ImportJobHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		job, err := GetJob(c.UserContext(), database.DB, c.Params("id"))
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(job)
	}
}

// GET /api/admin/exports/:collection?format=xlsx|csv
func ExportHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		coll, err := Lookup(c.Params("collection"))
		if err != nil {
			return apperr.ToFiber(err)
		}
		format := Format(c.Query("format", string(FormatXLSX)))
		if format != FormatXLSX && format != FormatCSV {
			return fiber.NewError(fiber.StatusBadRequest, "format xlsx veya csv olmalı")
		}

		rows, err := coll.Export(c.UserContext(), database.DB)
		if err != nil {
			return apperr.ToFiber(err)
		}

		var buf bytes.Buffer
		if err := WriteTable(&buf, format, coll.Name(), coll.Header(), rows); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Dosya oluşturulamadı")
		}

		fileName := fmt.Sprintf("%s_%s.%s", coll.Name(), time.Now().Format("20060102"), format)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", fileName))
		if format == FormatCSV {
			c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		} else {
			c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		}
		return c.Send(buf.Bytes())
	}
}
