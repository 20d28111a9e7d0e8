// Package dashboard serves a read-only view of stored articles: HTML cards
// for people and a JSON listing for scripts.
package dashboard

import (
	"context"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/econodata/noticias-harvester/internal/domain"
	"github.com/econodata/noticias-harvester/internal/logger"
	"github.com/econodata/noticias-harvester/internal/storage"
)

const displayLayout = "02/01/2006 15:04"

// ArticleLister is the store query behind every page.
type ArticleLister interface {
	ListArticles(ctx context.Context, q storage.Query) (storage.Page, error)
}

type Handler struct {
	store    ArticleLister
	log      logger.Logger
	pageSize int
	loc      *time.Location
}

// NewHandler creates a Handler showing pageSize articles per page by default.
func NewHandler(store ArticleLister, log logger.Logger, pageSize int) *Handler {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		loc = time.FixedZone("BRT", -3*60*60)
	}
	if pageSize <= 0 {
		pageSize = storage.DefaultPageSize
	}
	return &Handler{store: store, log: logger.Ensure(log), pageSize: pageSize, loc: loc}
}

// NewRouter builds the gin engine with every dashboard route.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.requestLogger())
	r.SetHTMLTemplate(pageTemplate)

	r.GET("/", h.GetIndex)
	r.GET("/api/articles", h.GetArticles)
	r.GET("/healthz", h.GetHealth)
	return r
}

type ArticleResponse struct {
	SourceID    string `json:"source_id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	ImageURL    string `json:"image_url,omitempty"`
	PublishedAt string `json:"published_at"`
}

type ArticlesResponse struct {
	Articles []ArticleResponse `json:"articles"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	Pages    int               `json:"pages"`
}

func (h *Handler) GetArticles(c *gin.Context) {
	page, err := h.store.ListArticles(c.Request.Context(), h.query(c))
	if err != nil {
		h.log.ErrorObj("list articles failed", "dashboard_list_error", map[string]any{"error": err.Error()})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store error"})
		return
	}

	res := ArticlesResponse{
		Articles: make([]ArticleResponse, 0, len(page.Articles)),
		Total:    page.Total,
		Page:     page.Page,
		PageSize: page.PageSize,
		Pages:    page.Pages(),
	}
	for _, a := range page.Articles {
		res.Articles = append(res.Articles, ArticleResponse{
			SourceID:    a.SourceID,
			Title:       a.Title,
			URL:         a.URL,
			ImageURL:    a.ImageURL,
			PublishedAt: a.PublishedAt.UTC().Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, res)
}

type card struct {
	Title    string
	URL      string
	ImageURL string
	Caption  string
}

type indexData struct {
	Source   string
	Cards    []card
	Page     int
	Pages    int
	PrevLink string
	NextLink string
}

func (h *Handler) GetIndex(c *gin.Context) {
	q := h.query(c)
	page, err := h.store.ListArticles(c.Request.Context(), q)
	if err != nil {
		h.log.ErrorObj("list articles failed", "dashboard_list_error", map[string]any{"error": err.Error()})
		c.String(http.StatusInternalServerError, "store error")
		return
	}

	data := indexData{Source: q.SourceID, Page: page.Page, Pages: max(page.Pages(), 1)}
	for _, a := range page.Articles {
		data.Cards = append(data.Cards, h.card(a))
	}
	if page.Page > 1 {
		data.PrevLink = pageLink(q, page.Page-1)
	}
	if page.Page < data.Pages {
		data.NextLink = pageLink(q, page.Page+1)
	}
	c.HTML(http.StatusOK, "index", data)
}

func (h *Handler) card(a domain.Article) card {
	return card{
		Title:    a.Title,
		URL:      a.URL,
		ImageURL: a.ImageURL,
		Caption:  strings.ToUpper(a.SourceID) + " - " + a.PublishedAt.In(h.loc).Format(displayLayout),
	}
}

func pageLink(q storage.Query, page int) string {
	v := url.Values{}
	v.Set("page", strconv.Itoa(page))
	v.Set("page_size", strconv.Itoa(q.PageSize))
	if q.SourceID != "" {
		v.Set("source", q.SourceID)
	}
	return "/?" + v.Encode()
}

// GetHealth reports whether the store answers a one-row query.
func (h *Handler) GetHealth(c *gin.Context) {
	if _, err := h.store.ListArticles(c.Request.Context(), storage.Query{Page: 1, PageSize: 1}); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "store": "unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "store": "connected"})
}

func (h *Handler) query(c *gin.Context) storage.Query {
	return storage.Query{
		SourceID: strings.ToLower(strings.TrimSpace(c.Query("source"))),
		Page:     h.queryInt(c, "page", 1),
		PageSize: h.queryInt(c, "page_size", h.pageSize),
	}.Normalize()
}

func (h *Handler) queryInt(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		h.log.WarnObj("invalid query parameter, using default", "dashboard_bad_param", map[string]any{
			"param":   name,
			"value":   raw,
			"default": def,
		})
		return def
	}
	return v
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.log.DebugObj("request served", "dashboard_request", map[string]any{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
	}
}

var pageTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="pt-BR">
<head>
<meta charset="utf-8">
<title>Notícias{{if .Source}} - {{.Source}}{{end}}</title>
<style>
body{font-family:sans-serif;margin:2rem;background:#f5f5f5}
.grid{display:grid;grid-template-columns:repeat(auto-fill,minmax(280px,1fr));gap:1rem}
.card{background:#fff;border-radius:6px;overflow:hidden;box-shadow:0 1px 3px rgba(0,0,0,.15)}
.card img{width:100%;height:160px;object-fit:cover}
.card h2{font-size:1rem;margin:.75rem}
.card p{color:#666;font-size:.8rem;margin:.75rem}
nav{margin-top:1.5rem}
</style>
</head>
<body>
<div class="grid">
{{range .Cards}}<div class="card">
{{if .ImageURL}}<img src="{{.ImageURL}}" alt="">{{end}}
<h2><a href="{{.URL}}" target="_blank" rel="noopener">{{.Title}}</a></h2>
<p>{{.Caption}}</p>
</div>
{{else}}<p>Nenhuma notícia encontrada.</p>
{{end}}</div>
<nav>{{if .PrevLink}}<a href="{{.PrevLink}}">&laquo; Anterior</a>{{end}} Página {{.Page}} de {{.Pages}} {{if .NextLink}}<a href="{{.NextLink}}">Próxima &raquo;</a>{{end}}</nav>
</body>
</html>`))
