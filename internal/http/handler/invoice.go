package handler

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"invoicescan/internal/export"
	"invoicescan/internal/recordstore"
	"invoicescan/internal/service"
	"invoicescan/internal/textextract"
)

// UploadInvoice handles multipart uploads (field name: file) and returns the processed record.
func UploadInvoice(svc service.InvoiceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		res, err := svc.Process(c.UserContext(), f, fh.Filename, fh.Header.Get(fiber.HeaderContentType), fh.Size)
		if err != nil {
			return writeProcessError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

func writeProcessError(c *fiber.Ctx, err error) error {
	var we *recordstore.WriteError
	switch {
	case errors.Is(err, service.ErrFilenameRequired):
		return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file name is required")
	case errors.Is(err, service.ErrTooLarge):
		return writeError(c, fiber.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file exceeds the upload limit")
	case errors.Is(err, textextract.ErrUnsupportedMediaType):
		return writeError(c, fiber.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "only PDF, JPEG and PNG files are supported")
	case errors.As(err, &we):
		return writeError(c, fiber.StatusInternalServerError, "STORAGE_WRITE_FAILED", "could not store the processed invoice")
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// ListInvoices returns record summaries with limit & offset.
func ListInvoices(svc service.InvoiceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := svc.List(c.UserContext(), limit, offset)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(res)
	}
}

// GetInvoice returns one record by handle.
func GetInvoice(svc service.InvoiceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		handle := c.Params("handle")
		if !recordstore.ValidHandle(handle) {
			return writeError(c, fiber.StatusBadRequest, "INVALID_HANDLE", "invalid invoice handle")
		}
		rec, err := svc.Get(c.UserContext(), handle)
		if err != nil {
			return writeLookupError(c, err)
		}
		return c.JSON(rec)
	}
}

func writeLookupError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "invoice not found")
	case errors.Is(err, recordstore.ErrInvalidHandle):
		return writeError(c, fiber.StatusBadRequest, "INVALID_HANDLE", "invalid invoice handle")
	case errors.Is(err, export.ErrUnsupportedFormat):
		return writeError(c, fiber.StatusBadRequest, "UNSUPPORTED_FORMAT", "format must be csv, json or xlsx")
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// ExportInvoices downloads the records named by repeated handle query
// parameters, or every record when none is given.
func ExportInvoices(svc service.InvoiceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var handles []string
		for _, v := range c.Context().QueryArgs().PeekMulti("handle") {
			h := string(v)
			if !recordstore.ValidHandle(h) {
				return writeError(c, fiber.StatusBadRequest, "INVALID_HANDLE", "invalid invoice handle")
			}
			handles = append(handles, h)
		}
		return sendExport(c, svc, handles)
	}
}

// ExportInvoice downloads a single record.
func ExportInvoice(svc service.InvoiceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		handle := c.Params("handle")
		if !recordstore.ValidHandle(handle) {
			return writeError(c, fiber.StatusBadRequest, "INVALID_HANDLE", "invalid invoice handle")
		}
		return sendExport(c, svc, []string{handle})
	}
}

func sendExport(c *fiber.Ctx, svc service.InvoiceService, handles []string) error {
	format, err := export.ParseFormat(c.Query("format", string(export.FormatCSV)))
	if err != nil {
		return writeLookupError(c, err)
	}
	res, err := svc.Export(c.UserContext(), handles, format)
	if err != nil {
		return writeLookupError(c, err)
	}
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename=%q`, res.Filename))
	c.Set(fiber.HeaderContentType, res.ContentType)
	return c.Send(res.Data)
}

// InvoiceSource redirects to, or streams, the original uploaded document.
func InvoiceSource(svc service.InvoiceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		handle := c.Params("handle")
		if !recordstore.ValidHandle(handle) {
			return writeError(c, fiber.StatusBadRequest, "INVALID_HANDLE", "invalid invoice handle")
		}
		src, err := svc.Source(c.UserContext(), handle)
		if err != nil {
			return writeLookupError(c, err)
		}
		if src.URL != "" {
			return c.Redirect(src.URL, fiber.StatusTemporaryRedirect)
		}
		c.Set(fiber.HeaderContentType, src.ContentType)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`inline; filename=%q`, src.Filename))
		return c.SendStream(src.Body)
	}
}
