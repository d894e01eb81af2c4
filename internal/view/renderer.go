package view

import (
	"bytes"
	"embed"
	"io/fs"
	"net/http"
	"net/url"

	"github.com/gofiber/template/html/v2"
)

//go:embed templates/*.html
var templateFS embed.FS

// Table is the binding of the "rows" template.
type Table struct {
	IdleVariant bool
	Rows        []Row
}

// Page is the binding of the "dashboard" template.
type Page struct {
	Title     string
	User      string
	Flash     string
	FlashOK   bool
	FetchedAt string
	Table     Table
}

type ConfirmPage struct {
	Name   string
	State  string
	Action string
}

type LoginPage struct {
	Error string
}

// NewEngine builds the template engine shared by fiber and the live hub.
func NewEngine() *html.Engine {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		panic(err)
	}
	engine := html.NewFileSystem(http.FS(sub), ".html")
	engine.AddFunc("pathEscape", url.PathEscape)
	return engine
}

// Renderer renders fragments outside of a fiber request.
type Renderer struct {
	engine *html.Engine
}

func NewRenderer(engine *html.Engine) *Renderer {
	return &Renderer{engine: engine}
}

func (r *Renderer) Engine() *html.Engine {
	return r.engine
}

// RenderRows renders the table body for the given rows.
func (r *Renderer) RenderRows(table Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.engine.Render(&buf, "rows", table); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
