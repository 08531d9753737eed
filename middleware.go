package main

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"journalbe/models"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// Context keys set by the middleware chain for downstream handlers.
const (
	ctxSubject    = "auth_subject"
	ctxUserID     = "user_id"
	ctxEntryID    = "entry_id"
	ctxInput      = "entry_input"
	ctxParsedDate = "parsed_date"
)

// dateLayouts accepted for entry dates, most common first.
var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05"}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.New("unrecognized date format")
}

// authMiddleware verifies the HS256 bearer token and stashes its subject
// claim. Token issuance belongs to the identity provider; only the shared
// secret verification happens here.
func (a *App) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			abortWithAPIError(c, http.StatusUnauthorized, "missing or invalid Authorization header")
			return
		}
		tokenString := authHeader[len("Bearer "):]
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrInvalidKeyType
			}
			return []byte(a.cfg.AuthSecret), nil
		})
		if err != nil || !token.Valid {
			abortWithAPIError(c, http.StatusUnauthorized, "invalid token")
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			abortWithAPIError(c, http.StatusUnauthorized, "invalid claims")
			return
		}
		sub, _ := claims["sub"].(string)
		if sub == "" {
			abortWithAPIError(c, http.StatusUnauthorized, "invalid claims")
			return
		}
		c.Set(ctxSubject, sub)
		c.Next()
	}
}

// validateUser resolves the authenticated subject to an internal user row and
// attaches its id. Entries routes require the user to already exist; only
// POST /api/users may create one.
func (a *App) validateUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		sub := c.GetString(ctxSubject)
		var user models.User
		if err := a.db.Where("auth0_id = ?", sub).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				abortWithAPIError(c, http.StatusNotFound, "User not found")
				return
			}
			a.failInternal(c, err)
			return
		}
		c.Set(ctxUserID, user.ID)
		c.Next()
	}
}

// validateEntryID rejects non-numeric id path segments before any lookup so a
// malformed id is a 400, never a 404.
func validateEntryID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			abortWithAPIError(c, http.StatusBadRequest, "Invalid entry ID")
			return
		}
		c.Set(ctxEntryID, id)
		c.Next()
	}
}

// entryInput distinguishes absent fields (nil) from supplied ones so PATCH
// can be truly partial.
type entryInput struct {
	Title       *string `json:"title"`
	Date        *string `json:"date"`
	Description *string `json:"description"`
}

// validateEntryInput normalizes and validates the create/update body. Rules
// run in a fixed order: empty title, bad date, empty description, then the
// meaningful-content render check. The parsed date is stashed for handlers.
func (a *App) validateEntryInput() gin.HandlerFunc {
	return func(c *gin.Context) {
		var in entryInput
		if c.Request.Body != nil && c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&in); err != nil {
				abortWithAPIError(c, http.StatusBadRequest, "Invalid request body")
				return
			}
		}
		if in.Title != nil && *in.Title == "" {
			abortWithAPIError(c, http.StatusBadRequest, "Title cannot be empty string")
			return
		}
		if in.Date != nil {
			parsed, err := parseDate(*in.Date)
			if err != nil {
				abortWithAPIError(c, http.StatusBadRequest, "Invalid date format")
				return
			}
			c.Set(ctxParsedDate, parsed)
		}
		if in.Description != nil {
			if *in.Description == "" {
				abortWithAPIError(c, http.StatusBadRequest, "Description cannot be empty string")
				return
			}
			if !a.validator.HasVisibleText(*in.Description) {
				abortWithAPIError(c, http.StatusBadRequest, "Description has no meaningful content")
				return
			}
		}
		c.Set(ctxInput, &in)
		c.Next()
	}
}

func entryInputFrom(c *gin.Context) *entryInput {
	if v, ok := c.Get(ctxInput); ok {
		return v.(*entryInput)
	}
	return &entryInput{}
}

func parsedDateFrom(c *gin.Context) (time.Time, bool) {
	if v, ok := c.Get(ctxParsedDate); ok {
		return v.(time.Time), true
	}
	return time.Time{}, false
}

// corsConfig restricts browsers to the configured origin allow-list.
// Requests without an Origin header (curl, server-to-server) pass through.
func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	cfg.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	return cfg
}

// clientLimiter hands out one token bucket per client IP.
type clientLimiter struct {
	mu      sync.Mutex
	clients map[string]*rate.Limiter
	rps     rate.Limit
	burst   int
}

func (l *clientLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.clients[ip]
	if !ok {
		lim = rate.NewLimiter(l.rps, l.burst)
		l.clients[ip] = lim
	}
	return lim
}

// rateLimitMiddleware caps request volume per client IP across the whole API
// surface. Exceeding the budget yields a 429.
func rateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	limiter := &clientLimiter{
		clients: make(map[string]*rate.Limiter),
		rps:     rate.Limit(rps),
		burst:   burst,
	}
	return func(c *gin.Context) {
		if !limiter.get(c.ClientIP()).Allow() {
			abortWithAPIError(c, http.StatusTooManyRequests, "Too many requests")
			return
		}
		c.Next()
	}
}
