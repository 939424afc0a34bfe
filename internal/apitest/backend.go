// Package apitest is an in-memory implementation of the Site of Sites REST
// contract built on gin. Tests point a real HTTPClient at it through
// httptest.NewServer.
package apitest

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const naiveISO = "2006-01-02T15:04:05.000000"

type user struct {
	ID          int64
	UniqueID    string
	Nickname    string
	Email       string
	Password    string
	Avatar      string
	Description string
	CreatedAt   time.Time
}

type project struct {
	ID          int64
	OwnerID     int64
	Title       string
	Description string
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

// Backend holds users, tokens and projects. The zero value is not usable;
// use NewBackend.
type Backend struct {
	mu       sync.Mutex
	users    map[int64]*user
	tokens   map[string]int64
	projects map[int64]*project
	nextUser int64
	nextProj int64

	failLogout  atomic.Bool
	searchCalls atomic.Int64
	lastAuth    atomic.Value

	engine *gin.Engine
}

func NewBackend() *Backend {
	gin.SetMode(gin.TestMode)

	b := &Backend{
		users:    make(map[int64]*user),
		tokens:   make(map[string]int64),
		projects: make(map[int64]*project),
	}

	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	api.POST("/auth/register", b.register)
	api.POST("/auth/login", b.login)
	api.GET("/auth/me", b.requireUser, b.me)
	api.POST("/auth/logout", b.logout)

	api.GET("/users/search", b.search)
	api.GET("/users/by-unique-id/:uid", b.byUniqueID)
	api.PUT("/users/profile", b.requireUser, b.updateProfile)

	api.GET("/projects", b.requireUser, b.listProjects)
	api.POST("/projects", b.requireUser, b.createProject)
	api.PUT("/projects/:id", b.requireUser, b.updateProject)
	api.DELETE("/projects/:id", b.requireUser, b.deleteProject)

	b.engine = r
	return b
}

func (b *Backend) Handler() http.Handler {
	return b.engine
}

// SeedUser registers a user directly and returns its unique id and a valid
// token.
func (b *Backend) SeedUser(email, password, nickname string) (uniqueID, token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u := b.addUserLocked(email, password, nickname)
	return u.UniqueID, b.issueTokenLocked(u.ID)
}

// RevokeTokens makes every issued token invalid, as if they had expired.
func (b *Backend) RevokeTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.tokens)
}

// FailLogout makes POST /api/auth/logout answer 500.
func (b *Backend) FailLogout(fail bool) {
	b.failLogout.Store(fail)
}

// SearchCalls counts hits on the search endpoint.
func (b *Backend) SearchCalls() int64 {
	return b.searchCalls.Load()
}

// LastAuthorization is the Authorization header of the last bearer request.
func (b *Backend) LastAuthorization() string {
	v, _ := b.lastAuth.Load().(string)
	return v
}

func (b *Backend) addUserLocked(email, password, nickname string) *user {
	b.nextUser++
	u := &user{
		ID:        b.nextUser,
		UniqueID:  "u" + strconv.FormatInt(b.nextUser, 10),
		Nickname:  nickname,
		Email:     email,
		Password:  password,
		CreatedAt: time.Now().UTC(),
	}
	b.users[u.ID] = u
	return u
}

func (b *Backend) issueTokenLocked(userID int64) string {
	tok := "tok-" + uuid.NewString()
	b.tokens[tok] = userID
	return tok
}

func detail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": msg})
}

func validationDetail(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
		"detail": []gin.H{{"msg": err.Error(), "type": "value_error"}},
	})
}

func (b *Backend) requireUser(c *gin.Context) {
	h := c.GetHeader("Authorization")
	b.lastAuth.Store(h)

	tok, ok := strings.CutPrefix(h, "Bearer ")
	if !ok || tok == "" {
		detail(c, http.StatusUnauthorized, "Token not provided")
		return
	}

	b.mu.Lock()
	id, ok := b.tokens[tok]
	b.mu.Unlock()
	if !ok {
		detail(c, http.StatusUnauthorized, "Invalid token")
		return
	}
	c.Set("uid", id)
	c.Next()
}

func currentID(c *gin.Context) int64 {
	return c.MustGet("uid").(int64)
}

func userJSON(u *user) gin.H {
	h := gin.H{
		"id":          u.ID,
		"unique_id":   u.UniqueID,
		"nickname":    u.Nickname,
		"email":       u.Email,
		"avatar":      nilIfEmpty(u.Avatar),
		"description": nilIfEmpty(u.Description),
		"created_at":  u.CreatedAt.Format(naiveISO),
	}
	return h
}

func projectJSON(p *project) gin.H {
	h := gin.H{
		"id":          p.ID,
		"title":       p.Title,
		"description": nilIfEmpty(p.Description),
		"created_at":  p.CreatedAt.Format(naiveISO),
	}
	if p.UpdatedAt != nil {
		h["updated_at"] = p.UpdatedAt.Format(naiveISO)
	}
	return h
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

type registerBody struct {
	Email           string `json:"email" binding:"required"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
	Nickname        string `json:"nickname" binding:"required"`
}

func (b *Backend) register(c *gin.Context) {
	var body registerBody
	if err := c.ShouldBindJSON(&body); err != nil {
		validationDetail(c, err)
		return
	}
	if body.Password != body.ConfirmPassword {
		validationDetail(c, errors.New("passwords do not match"))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.users {
		if strings.EqualFold(u.Email, body.Email) {
			detail(c, http.StatusBadRequest, "Email already registered")
			return
		}
		if u.Nickname == body.Nickname {
			detail(c, http.StatusBadRequest, "Nickname already taken")
			return
		}
	}
	u := b.addUserLocked(body.Email, body.Password, body.Nickname)
	c.JSON(http.StatusOK, gin.H{
		"access_token": b.issueTokenLocked(u.ID),
		"token_type":   "bearer",
		"user":         userJSON(u),
	})
}

type loginBody struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (b *Backend) login(c *gin.Context) {
	var body loginBody
	if err := c.ShouldBindJSON(&body); err != nil {
		validationDetail(c, err)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.users {
		if strings.EqualFold(u.Email, body.Email) && u.Password == body.Password {
			c.JSON(http.StatusOK, gin.H{
				"access_token": b.issueTokenLocked(u.ID),
				"token_type":   "bearer",
				"user":         userJSON(u),
			})
			return
		}
	}
	detail(c, http.StatusUnauthorized, "Invalid email or password")
}

func (b *Backend) me(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c.JSON(http.StatusOK, userJSON(b.users[currentID(c)]))
}

func (b *Backend) logout(c *gin.Context) {
	b.lastAuth.Store(c.GetHeader("Authorization"))
	if b.failLogout.Load() {
		detail(c, http.StatusInternalServerError, "logout failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (b *Backend) search(c *gin.Context) {
	b.searchCalls.Add(1)
	q := strings.ToLower(c.Query("q"))
	if len([]rune(q)) < 2 {
		c.JSON(http.StatusOK, []gin.H{})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	ids := make([]int64, 0, len(b.users))
	for id := range b.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := []gin.H{}
	for _, id := range ids {
		u := b.users[id]
		if strings.Contains(strings.ToLower(u.Nickname), q) || strings.Contains(strings.ToLower(u.UniqueID), q) {
			out = append(out, gin.H{
				"id":        u.ID,
				"unique_id": u.UniqueID,
				"nickname":  u.Nickname,
				"avatar":    nilIfEmpty(u.Avatar),
			})
			if len(out) == 5 {
				break
			}
		}
	}
	c.JSON(http.StatusOK, out)
}

func (b *Backend) byUniqueID(c *gin.Context) {
	uid := c.Param("uid")

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.users {
		if u.UniqueID == uid {
			h := userJSON(u)
			h["projects"] = b.projectsOfLocked(u.ID)
			c.JSON(http.StatusOK, h)
			return
		}
	}
	detail(c, http.StatusNotFound, "User not found")
}

type profileBody struct {
	Nickname    *string `json:"nickname"`
	Description *string `json:"description"`
	Avatar      *string `json:"avatar"`
}

func (b *Backend) updateProfile(c *gin.Context) {
	var body profileBody
	if err := c.ShouldBindJSON(&body); err != nil {
		validationDetail(c, err)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	u := b.users[currentID(c)]
	if body.Nickname != nil && *body.Nickname != u.Nickname {
		for _, other := range b.users {
			if other.ID != u.ID && other.Nickname == *body.Nickname {
				detail(c, http.StatusBadRequest, "Nickname already taken")
				return
			}
		}
		u.Nickname = *body.Nickname
	}
	if body.Description != nil {
		u.Description = *body.Description
	}
	if body.Avatar != nil {
		u.Avatar = *body.Avatar
	}
	c.JSON(http.StatusOK, userJSON(u))
}

func (b *Backend) projectsOfLocked(owner int64) []gin.H {
	ids := make([]int64, 0)
	for id, p := range b.projects {
		if p.OwnerID == owner {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]gin.H, 0, len(ids))
	for _, id := range ids {
		out = append(out, projectJSON(b.projects[id]))
	}
	return out
}

func (b *Backend) listProjects(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c.JSON(http.StatusOK, b.projectsOfLocked(currentID(c)))
}

type projectBody struct {
	Title       string `json:"title" binding:"required,max=100"`
	Description string `json:"description"`
}

func (b *Backend) createProject(c *gin.Context) {
	var body projectBody
	if err := c.ShouldBindJSON(&body); err != nil {
		validationDetail(c, err)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextProj++
	p := &project{
		ID:          b.nextProj,
		OwnerID:     currentID(c),
		Title:       body.Title,
		Description: body.Description,
		CreatedAt:   time.Now().UTC(),
	}
	b.projects[p.ID] = p
	c.JSON(http.StatusOK, projectJSON(p))
}

func (b *Backend) ownedProjectLocked(c *gin.Context) (*project, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		validationDetail(c, err)
		return nil, false
	}
	p, ok := b.projects[id]
	if !ok || p.OwnerID != currentID(c) {
		detail(c, http.StatusNotFound, "Project not found")
		return nil, false
	}
	return p, true
}

func (b *Backend) updateProject(c *gin.Context) {
	var body projectBody
	if err := c.ShouldBindJSON(&body); err != nil {
		validationDetail(c, err)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.ownedProjectLocked(c)
	if !ok {
		return
	}
	now := time.Now().UTC()
	p.Title = body.Title
	p.Description = body.Description
	p.UpdatedAt = &now
	c.JSON(http.StatusOK, projectJSON(p))
}

func (b *Backend) deleteProject(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.ownedProjectLocked(c)
	if !ok {
		return
	}
	delete(b.projects, p.ID)
	c.JSON(http.StatusOK, gin.H{"message": "Project deleted"})
}
