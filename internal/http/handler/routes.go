package handler

import (
	"context"
	_ "embed"
	"time"

	"github.com/gofiber/fiber/v2"

	"invoicescan/internal/service"
)

//go:embed web/index.html
var uploadPage string

const swaggerPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>invoicescan API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({
      url: '/openapi.yaml',
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis],
      layout: 'BaseLayout'
    });
  </script>
</body>
</html>`

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, svc service.InvoiceService) {
	app.Get("/", UploadPage())
	app.Get("/openapi.yaml", OpenAPISpec("openapi.yaml"))
	app.Get("/docs", APIDocs())
	app.Get("/health", HealthCheck(svc))
	app.Get("/healthz", LivenessProbe())

	inv := app.Group("/invoices")
	inv.Post("/", UploadInvoice(svc))
	inv.Get("/", ListInvoices(svc))
	// registered before /:handle so "export" is not taken as a handle
	inv.Get("/export", ExportInvoices(svc))
	inv.Get("/:handle", GetInvoice(svc))
	inv.Get("/:handle/export", ExportInvoice(svc))
	inv.Get("/:handle/source", InvoiceSource(svc))
}

// UploadPage serves the single-page upload UI.
func UploadPage() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Type("html").SendString(uploadPage)
	}
}

func OpenAPISpec(path string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Type("yaml")
		return c.SendFile(path)
	}
}

func APIDocs() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Type("html").SendString(swaggerPage)
	}
}

// HealthCheck reports unhealthy when a dependency (the record index) is unreachable.
func HealthCheck(svc service.InvoiceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := svc.Ping(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is a dependency-free liveness check.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}
