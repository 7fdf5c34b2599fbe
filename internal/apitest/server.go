// Package apitest runs an in-memory fake of the worksite REST API for
// tests. It implements the routes the client uses, issues HS256 tokens,
// scopes data per user like the real service, and can be told to fail
// individual requests.
package apitest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/mesh-intelligence/worksite/internal/session"
	"github.com/mesh-intelligence/worksite/pkg/types"
)

const (
	userIDKey    = "user_id"
	signingKey   = "apitest-secret"
	tokenTTL     = time.Hour
	requestIDHdr = "X-Request-ID"
)

// Request is one request seen by the server.
type Request struct {
	Method    string
	Path      string
	RawQuery  string
	RequestID string
}

// Failure makes the server answer a request with Status and an
// {"error": Message} body instead of handling it.
type Failure struct {
	Status  int
	Message string
}

// Interceptor decides whether a request fails. It receives the method
// and the request path (e.g. "/api/workers/3").
type Interceptor func(method, path string) (Failure, bool)

type account struct {
	user types.User
	hash []byte
}

// Server is the fake API. All methods are safe for concurrent use.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	accounts    map[string]*account
	workers     map[int64]types.Worker
	projects    map[int64]types.Project
	nextID      int64
	requests    []Request
	interceptor Interceptor
	now         func() time.Time
}

// New starts a server and stops it when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &Server{
		accounts: make(map[string]*account),
		workers:  make(map[int64]types.Worker),
		projects: make(map[int64]types.Project),
		now:      time.Now,
	}
	s.Server = httptest.NewServer(s.router())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.record(), s.intercept())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "message": "Service is up and running"})
	})

	auth := r.Group("/api/auth")
	auth.POST("/login", s.login)
	auth.POST("/register", s.register)

	workers := r.Group("/api/workers", s.authenticate())
	workers.GET("", s.listWorkers)
	workers.GET("/:id", s.getWorker)
	workers.POST("", s.createWorker)
	workers.PUT("/:id", s.updateWorker)
	workers.DELETE("/:id", s.deleteWorker)

	projects := r.Group("/api/projects", s.authenticate())
	projects.GET("", s.listProjects)
	projects.GET("/:id", s.getProject)
	projects.POST("", s.createProject)
	projects.PUT("/:id", s.updateProject)
	projects.DELETE("/:id", s.deleteProject)
	projects.POST("/:id/workers", s.assignWorker)
	projects.GET("/:id/workers/available", s.availableWorkers)
	projects.DELETE("/:id/workers/:workerId", s.unassignWorker)

	return r
}

// Intercept installs fn to decide request failures; nil removes it.
func (s *Server) Intercept(fn Interceptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interceptor = fn
}

// FailAll makes every request to method and path (exact, e.g.
// "/api/workers") fail with status and message.
func (s *Server) FailAll(method, path string, status int, message string) {
	s.Intercept(func(m, p string) (Failure, bool) {
		if m == method && p == path {
			return Failure{Status: status, Message: message}, true
		}
		return Failure{}, false
	})
}

// Requests returns the requests seen so far, oldest first.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// CountRequests returns how many requests matched method and path prefix.
func (s *Server) CountRequests(method, pathPrefix string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && strings.HasPrefix(r.Path, pathPrefix) {
			n++
		}
	}
	return n
}

// AddUser creates an account and returns it.
func (s *Server) AddUser(username, password, role string) types.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.addUserLocked(username, username+"@example.com", password, role)
	if err != nil {
		panic("apitest: " + err.Error())
	}
	return u
}

// addUserLocked stores the account with a bcrypt hash of password. The
// minimum cost keeps tests fast.
func (s *Server) addUserLocked(username, email, password, role string) (types.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return types.User{}, err
	}
	s.nextID++
	u := types.User{ID: s.nextID, Username: username, Email: email, Role: role, Active: true}
	s.accounts[username] = &account{user: u, hash: hash}
	return u, nil
}

// Token issues a valid token for an existing user.
func (s *Server) Token(t testing.TB, username string) string {
	t.Helper()
	s.mu.Lock()
	acc, ok := s.accounts[username]
	s.mu.Unlock()
	if !ok {
		t.Fatalf("apitest: unknown user %q", username)
	}
	token, err := s.issue(acc.user)
	if err != nil {
		t.Fatalf("apitest: issue token: %v", err)
	}
	return token
}

// SeedWorker stores w for the owner and returns it with its new ID.
func (s *Server) SeedWorker(owner types.User, w types.Worker) types.Worker {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	w.ID = s.nextID
	w.UserID = owner.ID
	now := s.now().UTC()
	w.CreatedAt, w.UpdatedAt = &now, &now
	s.workers[w.ID] = w
	return w
}

// SeedProject stores p for the owner and returns it with its new ID.
func (s *Server) SeedProject(owner types.User, p types.Project) types.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	p.ID = s.nextID
	p.UserID = owner.ID
	now := s.now().UTC()
	p.CreatedAt, p.UpdatedAt = &now, &now
	s.projects[p.ID] = p
	return p
}

// Worker returns the stored worker with id.
func (s *Server) Worker(id int64) (types.Worker, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.workers[id]
	return w, ok
}

// Project returns the stored project with id.
func (s *Server) Project(id int64) (types.Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	return p, ok
}

func (s *Server) record() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHdr)
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:    c.Request.Method,
			Path:      c.Request.URL.Path,
			RawQuery:  c.Request.URL.RawQuery,
			RequestID: rid,
		})
		s.mu.Unlock()
		if rid != "" {
			c.Header(requestIDHdr, rid)
		}
		c.Next()
	}
}

func (s *Server) intercept() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		fn := s.interceptor
		s.mu.Unlock()
		if fn == nil {
			c.Next()
			return
		}
		if f, fail := fn(c.Request.Method, c.Request.URL.Path); fail {
			c.AbortWithStatusJSON(f.Status, gin.H{"error": f.Message})
			return
		}
		c.Next()
	}
}

func (s *Server) issue(u types.User) (string, error) {
	now := s.now()
	claims := session.Claims{
		UserID:   u.ID,
		Username: u.Username,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingKey))
}

func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}

		claims := &session.Claims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrTokenSignatureInvalid
			}
			return []byte(signingKey), nil
		})
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(userIDKey, claims.UserID)
		c.Next()
	}
}

func (s *Server) login(c *gin.Context) {
	var req types.Credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	acc, ok := s.accounts[req.Username]
	s.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(acc.hash, []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}
	if !acc.user.Active {
		c.JSON(http.StatusForbidden, gin.H{"error": "Account is deactivated"})
		return
	}

	token, err := s.issue(acc.user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, types.AuthResult{Token: token, User: acc.user})
}

func (s *Server) register(c *gin.Context) {
	var req types.Registration
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
		return
	}

	s.mu.Lock()
	if _, exists := s.accounts[req.Username]; exists {
		s.mu.Unlock()
		c.JSON(http.StatusConflict, gin.H{"error": "Username already taken"})
		return
	}
	u, err := s.addUserLocked(req.Username, req.Email, req.Password, types.RoleUser)
	s.mu.Unlock()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := s.issue(u)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, types.AuthResult{Token: token, User: u})
}

func currentUser(c *gin.Context) int64 {
	return c.GetInt64(userIDKey)
}
