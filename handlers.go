package main

import (
	"net/http"
	"strconv"
	"time"

	"journalbe/models"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// App bundles the handler dependencies: store handle, content validator and
// trend analyzer are constructed in main and passed in rather than living in
// package globals.
type App struct {
	db        *gorm.DB
	validator ContentValidator
	analyzer  TrendAnalyzer
	cfg       Config
	log       zerolog.Logger
}

func (a *App) setupRoutes(r *gin.Engine) {
	api := r.Group("/api")
	api.Use(a.errorHandler())
	api.Use(rateLimitMiddleware(a.cfg.RateLimitRPS, a.cfg.RateLimitBurst))
	api.Use(cors.New(corsConfig(a.cfg.AllowedOrigins)))
	api.Use(a.authMiddleware())

	api.POST("/users", a.findOrCreateUser)

	entries := api.Group("/entries")
	entries.Use(a.validateUser())
	entries.POST("", a.validateEntryInput(), a.addEntry)
	entries.GET("", a.getEntries)
	entries.POST("/import", a.importEntry)
	entries.POST("/trend", a.analyzeEntriesTrend)
	entries.GET("/:id", validateEntryID(), a.getEntry)
	entries.PATCH("/:id", validateEntryID(), a.validateEntryInput(), a.updateEntry)
	entries.DELETE("/:id", validateEntryID(), a.deleteEntry)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
	})
}

// findOrCreateUser maps the token subject to an internal user, creating the
// row on first sight. The insert uses ON CONFLICT DO NOTHING so two racing
// first-requests cannot create duplicates.
func (a *App) findOrCreateUser(c *gin.Context) {
	sub := c.GetString(ctxSubject)

	user := models.User{Auth0ID: sub}
	res := a.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "auth0_id"}},
		DoNothing: true,
	}).Create(&user)
	if res.Error != nil {
		a.failInternal(c, res.Error)
		return
	}
	if res.RowsAffected == 1 {
		c.JSON(http.StatusCreated, gin.H{"id": user.ID, "isNewUser": true})
		return
	}
	// Conflict: the row already existed, re-read it for its id.
	if err := a.db.Where("auth0_id = ?", sub).First(&user).Error; err != nil {
		a.failInternal(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": user.ID, "isNewUser": false})
}

// addEntry creates an entry for the authenticated user. All three fields are
// mandatory here; per-field validity was checked by validateEntryInput.
func (a *App) addEntry(c *gin.Context) {
	in := entryInputFrom(c)
	date, hasDate := parsedDateFrom(c)
	if in.Title == nil || in.Description == nil || !hasDate {
		abortWithAPIError(c, http.StatusBadRequest, "Missing title, date, and/or description")
		return
	}

	entry := models.Entry{
		UserID:      c.GetUint(ctxUserID),
		Title:       *in.Title,
		Date:        date,
		Description: *in.Description,
	}
	if err := a.db.Create(&entry).Error; err != nil {
		a.failInternal(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// getEntry fetches a single entry scoped to (id, owner). A foreign or absent
// id is the same 404 so ownership never leaks.
func (a *App) getEntry(c *gin.Context) {
	var entry models.Entry
	err := a.db.Where("id = ? AND user_id = ?", c.GetInt(ctxEntryID), c.GetUint(ctxUserID)).First(&entry).Error
	if err == gorm.ErrRecordNotFound {
		abortWithAPIError(c, http.StatusNotFound, "Entry not found for target user")
		return
	}
	if err != nil {
		a.failInternal(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// updateEntry applies a partial update. Only supplied fields change, and the
// update runs as a single owner-scoped UPDATE ... RETURNING statement, so
// there is no window between mutation and re-read.
func (a *App) updateEntry(c *gin.Context) {
	in := entryInputFrom(c)
	updates := map[string]interface{}{}
	if in.Title != nil {
		updates["title"] = *in.Title
	}
	if date, ok := parsedDateFrom(c); ok {
		updates["date"] = date
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if len(updates) == 0 {
		c.Status(http.StatusNoContent)
		return
	}
	updates["updated_at"] = time.Now().UTC()

	var entry models.Entry
	res := a.db.Model(&entry).
		Clauses(clause.Returning{}).
		Where("id = ? AND user_id = ?", c.GetInt(ctxEntryID), c.GetUint(ctxUserID)).
		Updates(updates)
	if res.Error != nil {
		a.failInternal(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		abortWithAPIError(c, http.StatusNotFound, "Entry not found for target user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Entry updated successfully.", "entry": entry})
}

// deleteEntry removes an entry scoped to (id, owner).
func (a *App) deleteEntry(c *gin.Context) {
	res := a.db.Where("id = ? AND user_id = ?", c.GetInt(ctxEntryID), c.GetUint(ctxUserID)).
		Delete(&models.Entry{})
	if res.Error != nil {
		a.failInternal(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		abortWithAPIError(c, http.StatusNotFound, "Entry not found for target user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Entry deleted successfully."})
}

// getEntries lists the owner's entries newest-date-first, sliced to the
// requested page. A page past the end is not an error; the pagination block
// still reports the true totals.
func (a *App) getEntries(c *gin.Context) {
	page, limit := 1, 20
	if v := c.Query("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			abortWithAPIError(c, http.StatusBadRequest, "Invalid page parameter")
			return
		}
		page = n
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			abortWithAPIError(c, http.StatusBadRequest, "Invalid limit parameter")
			return
		}
		limit = n
	}

	owner := c.GetUint(ctxUserID)
	var total int64
	if err := a.db.Model(&models.Entry{}).Where("user_id = ?", owner).Count(&total).Error; err != nil {
		a.failInternal(c, err)
		return
	}
	entries := make([]models.Entry, 0, limit)
	err := a.db.Where("user_id = ?", owner).
		Order("date desc").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&entries).Error
	if err != nil {
		a.failInternal(c, err)
		return
	}

	totalPages := (int(total) + limit - 1) / limit
	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"pagination": gin.H{
			"page":         page,
			"limit":        limit,
			"totalPages":   totalPages,
			"totalResults": total,
		},
	})
}
