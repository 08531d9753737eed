package main

import (
	"bytes"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"journalbe/models"

	"github.com/adrg/frontmatter"
	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

// maxImportSize caps uploaded markdown files at 2 MiB.
const maxImportSize = 2 << 20

// ContentValidator decides whether a markdown string carries any visible
// text once rendered. The concrete renderer/sanitizer pair stays pluggable
// behind this interface.
type ContentValidator interface {
	HasVisibleText(markdown string) bool
}

// markdownValidator renders with goldmark and strips every tag; whatever
// survives (minus whitespace and non-breaking spaces) is the visible text.
type markdownValidator struct {
	md    goldmark.Markdown
	strip *bluemonday.Policy
}

func newMarkdownValidator() *markdownValidator {
	return &markdownValidator{
		md:    goldmark.New(),
		strip: bluemonday.StrictPolicy(),
	}
}

func (v *markdownValidator) HasVisibleText(markdown string) bool {
	var buf bytes.Buffer
	if err := v.md.Convert([]byte(markdown), &buf); err != nil {
		return false
	}
	text := html.UnescapeString(v.strip.Sanitize(buf.String()))
	text = strings.ReplaceAll(text, "\u00a0", " ")
	return strings.TrimSpace(text) != ""
}

// bodyPolicy keeps the safe markup subset for imported entry bodies:
// headings, emphasis, lists, blockquotes, code, links with safe schemes and
// images. Everything else is stripped.
var bodyPolicy = bluemonday.UGCPolicy()

// importMeta is the front-matter block of an imported markdown file.
type importMeta struct {
	Title string `yaml:"title"`
	Date  string `yaml:"date"`
}

// importEntry turns an uploaded markdown file (YAML front-matter + body)
// into a journal entry for the current user. Each validation failure
// short-circuits with its own 400 message.
func (a *App) importEntry(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil || fh.Size == 0 {
		abortWithAPIError(c, http.StatusBadRequest, "File object is invalid")
		return
	}
	if fh.Size > maxImportSize {
		abortWithAPIError(c, http.StatusBadRequest, "File too large")
		return
	}

	f, err := fh.Open()
	if err != nil {
		a.failInternal(c, err)
		return
	}
	defer f.Close()

	var meta importMeta
	body, err := frontmatter.MustParse(io.LimitReader(f, maxImportSize), &meta)
	if err != nil {
		abortWithAPIError(c, http.StatusBadRequest, "Could not parse markdown")
		return
	}
	if meta.Title == "" || meta.Date == "" {
		abortWithAPIError(c, http.StatusBadRequest, "Missing metadata: title and/or date")
		return
	}
	date, err := time.Parse("2006-01-02", meta.Date)
	if err != nil {
		abortWithAPIError(c, http.StatusBadRequest, "Invalid date format, use YYYY-MM-DD")
		return
	}

	entry := models.Entry{
		UserID:      c.GetUint(ctxUserID),
		Title:       meta.Title,
		Date:        date.UTC(),
		Description: strings.TrimSpace(bodyPolicy.Sanitize(string(body))),
	}
	if err := a.db.Create(&entry).Error; err != nil {
		a.failInternal(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}
