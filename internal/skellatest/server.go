// Package skellatest runs an in-process skella API for tests. It serves a
// schema, a cookie-based current-user session, single users, a paginated
// user list, blog posts and a multipart avatar upload.
package skellatest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/fivetwenty-io/skella/internal/constants"
	"github.com/fivetwenty-io/skella/pkg/skella"
)

// Version is the API version served unless overridden.
const Version = "0.1.0"

// User is a stored account.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first-name"`
	LastName  string `json:"last-name"`
	Staff     bool   `json:"staff"`

	passwordHash []byte
}

// Post is a stored blog post.
type Post struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

// Upload records one received multipart upload.
type Upload struct {
	UserID      string
	Field       string
	Filename    string
	ContentType string
	Size        int
	Fields      map[string]string
}

// Server is a running fake API.
type Server struct {
	*httptest.Server

	version    string
	cookiePath string

	mu       sync.Mutex
	schema   skella.SchemaDocument
	users    map[string]*User
	order    []string
	sessions map[string]string
	posts    []Post
	uploads  []Upload

	schemaRequests atomic.Int32
	accepts        []string
}

// Option configures a Server.
type Option func(*Server)

// WithVersion serves a different API version.
func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = version
	}
}

// WithSchema replaces the default schema document.
func WithSchema(document skella.SchemaDocument) Option {
	return func(s *Server) {
		s.schema = document
	}
}

// WithCookiePath sets the Path of the session cookie. An empty path omits
// the attribute, so clients scope the cookie to the login endpoint.
func WithCookiePath(path string) Option {
	return func(s *Server) {
		s.cookiePath = path
	}
}

// WithPosts seeds the blog posts.
func WithPosts(posts ...Post) Option {
	return func(s *Server) {
		s.posts = append(s.posts, posts...)
	}
}

// New starts a server. Close it when done.
func New(opts ...Option) *Server {
	server := &Server{
		version:    Version,
		cookiePath: "/",
		users:    make(map[string]*User),
		sessions: make(map[string]string),
	}

	for _, opt := range opts {
		opt(server)
	}

	if server.schema.Endpoints == nil {
		server.schema = DefaultSchema(server.version)
	}

	server.Server = httptest.NewServer(server.routes())

	return server
}

// DefaultSchema describes the endpoints the server implements. The blog
// post list is declared before its member type.
func DefaultSchema(version string) skella.SchemaDocument {
	return skella.SchemaDocument{
		API: skella.APIInfo{Version: version},
		Endpoints: []skella.Endpoint{
			{
				Name:  "user",
				Path:  "/user/{id:UUID[0-9,a-z,-]+}",
				Title: "User",
				Properties: []skella.Property{
					{Name: "id", Type: skella.PropertyTypeString},
					{Name: "email", Type: skella.PropertyTypeString},
					{Name: "first-name", Type: skella.PropertyTypeString, Optional: true},
					{Name: "last-name", Type: skella.PropertyTypeString, Optional: true},
					{Name: "staff", Type: skella.PropertyTypeBool},
				},
			},
			{
				Name:  "users",
				Path:  "/users",
				Title: "Users",
				Properties: []skella.Property{
					{Name: "offset", Type: skella.PropertyTypeInt},
					{Name: "limit", Type: skella.PropertyTypeInt},
					{Name: "objects", Type: skella.PropertyTypeArray, ChildrenType: "user"},
				},
			},
			{
				Name:  "user-avatar",
				Path:  "/user/{id}/avatar",
				Title: "Avatar",
				Properties: []skella.Property{
					{Name: "id", Type: skella.PropertyTypeString},
					{Name: "image", Type: skella.PropertyTypeString, FileType: "image/png"},
				},
			},
			{
				Name: "blog-posts",
				Path: "/blog-posts",
				Properties: []skella.Property{
					{Name: "offset", Type: skella.PropertyTypeInt},
					{Name: "limit", Type: skella.PropertyTypeInt},
					{Name: "objects", Type: skella.PropertyTypeArray, ChildrenType: "blog-post"},
				},
			},
			{
				Name: "blog-post",
				Path: "/blog-post/{id:int}",
				Properties: []skella.Property{
					{Name: "id", Type: skella.PropertyTypeInt},
					{Name: "title", Type: skella.PropertyTypeString},
				},
			},
		},
	}
}

// APIRoot returns the API root without the version.
func (s *Server) APIRoot() string {
	return s.URL + "/api"
}

// SchemaURL returns the address of the schema document.
func (s *Server) SchemaURL() string {
	return s.APIRoot() + "/" + s.version + constants.SchemaPath
}

// AddUser stores an account and returns it.
func (s *Server) AddUser(email, password string, staff bool) *User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}

	user := &User{
		ID:           uuid.NewString(),
		Email:        email,
		Staff:        staff,
		passwordHash: hash,
	}

	s.mu.Lock()
	s.users[user.ID] = user
	s.order = append(s.order, user.ID)
	s.mu.Unlock()

	return user
}

// SchemaRequests returns how many times the schema was served.
func (s *Server) SchemaRequests() int {
	return int(s.schemaRequests.Load())
}

// Uploads returns the uploads received so far.
func (s *Server) Uploads() []Upload {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Upload(nil), s.uploads...)
}

// Accepts returns the Accept header of every API request received.
func (s *Server) Accepts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.accepts...)
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Route("/api/{version}", func(r chi.Router) {
		r.Use(s.checkVersion)

		r.Get("/schema", s.getSchema)

		r.Get("/user/current", s.getCurrentUser)
		r.Post("/user/current", s.login)
		r.Delete("/user/current", s.logout)

		r.Get("/user/{id}", s.getUser)
		r.Put("/user/{id}", s.putUser)
		r.Post("/user/{id}/avatar", s.uploadAvatar)

		r.Get("/users", s.listUsers)

		r.Get("/blog-posts", s.listPosts)
		r.Get("/blog-posts/{id}", s.getPost)
		r.Get("/blog-post/{id}", s.getPost)
	})

	return r
}

// checkVersion rejects requests whose path or Accept header names another version.
func (s *Server) checkVersion(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accept := r.Header.Get("Accept")

		s.mu.Lock()
		s.accepts = append(s.accepts, accept)
		s.mu.Unlock()

		if chi.URLParam(r, "version") != s.version || accept != skella.AcceptHeader(s.version) {
			writeError(w, r, http.StatusBadRequest, skella.ErrorIDIncorrectVersion, "Incorrect API version")

			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) getSchema(w http.ResponseWriter, r *http.Request) {
	s.schemaRequests.Add(1)

	s.mu.Lock()
	document := s.schema
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, document)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	err := json.NewDecoder(r.Body).Decode(&body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, skella.ErrorIDJSONParse, "Could not parse request body")

		return
	}

	user := s.userByEmail(body.Email)
	if user == nil || bcrypt.CompareHashAndPassword(user.passwordHash, []byte(body.Password)) != nil {
		writeError(w, r, http.StatusUnauthorized, skella.ErrorIDIncorrectPassword, "Incorrect email or password")

		return
	}

	token := uuid.NewString()

	s.mu.Lock()
	s.sessions[token] = user.ID
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     constants.DefaultSessionCookie,
		Value:    token,
		Path:     s.cookiePath,
		HttpOnly: true,
	})

	writeJSON(w, http.StatusOK, user)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(constants.DefaultSessionCookie)
	if err == nil {
		s.mu.Lock()
		delete(s.sessions, cookie.Value)
		s.mu.Unlock()
	}

	http.SetCookie(w, &http.Cookie{
		Name:   constants.DefaultSessionCookie,
		Value:  "",
		Path:   s.cookiePath,
		MaxAge: -1,
	})

	w.WriteHeader(http.StatusOK)
}

func (s *Server) getCurrentUser(w http.ResponseWriter, r *http.Request) {
	user := s.sessionUser(r)
	if user == nil {
		writeError(w, r, http.StatusUnauthorized, skella.ErrorIDNotLoggedIn, "You must be logged in")

		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	if s.sessionUser(r) == nil {
		writeError(w, r, http.StatusUnauthorized, skella.ErrorIDNotLoggedIn, "You must be logged in")

		return
	}

	s.mu.Lock()
	user, found := s.users[chi.URLParam(r, "id")]
	s.mu.Unlock()

	if !found {
		writeError(w, r, http.StatusNotFound, skella.ErrorIDResourceNotFound, "No such user")

		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (s *Server) putUser(w http.ResponseWriter, r *http.Request) {
	current := s.sessionUser(r)
	if current == nil {
		writeError(w, r, http.StatusUnauthorized, skella.ErrorIDNotLoggedIn, "You must be logged in")

		return
	}

	id := chi.URLParam(r, "id")
	if current.ID != id && !current.Staff {
		writeError(w, r, http.StatusForbidden, skella.ErrorIDForbidden, "Not allowed")

		return
	}

	var update User

	err := json.NewDecoder(r.Body).Decode(&update)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, skella.ErrorIDJSONParse, "Could not parse request body")

		return
	}

	s.mu.Lock()

	user, found := s.users[id]
	if found {
		user.FirstName = update.FirstName
		user.LastName = update.LastName
	}

	s.mu.Unlock()

	if !found {
		writeError(w, r, http.StatusNotFound, skella.ErrorIDResourceNotFound, "No such user")

		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (s *Server) uploadAvatar(w http.ResponseWriter, r *http.Request) {
	if s.sessionUser(r) == nil {
		writeError(w, r, http.StatusUnauthorized, skella.ErrorIDNotLoggedIn, "You must be logged in")

		return
	}

	reader, err := r.MultipartReader()
	if err != nil {
		writeError(w, r, http.StatusBadRequest, skella.ErrorIDFormParse, "Expected a multipart form")

		return
	}

	upload := Upload{UserID: chi.URLParam(r, "id"), Fields: make(map[string]string)}

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}

		if err != nil {
			writeError(w, r, http.StatusBadRequest, skella.ErrorIDFormParse, "Malformed multipart form")

			return
		}

		data, _ := io.ReadAll(part)

		if part.FileName() == "" {
			upload.Fields[part.FormName()] = string(data)

			continue
		}

		upload.Field = part.FormName()
		upload.Filename = part.FileName()
		upload.ContentType = part.Header.Get("Content-Type")
		upload.Size = len(data)
	}

	s.mu.Lock()
	s.uploads = append(s.uploads, upload)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":       upload.UserID,
		"filename": upload.Filename,
		"size":     upload.Size,
	})
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	if s.sessionUser(r) == nil {
		writeError(w, r, http.StatusUnauthorized, skella.ErrorIDNotLoggedIn, "You must be logged in")

		return
	}

	s.mu.Lock()

	users := make([]interface{}, 0, len(s.order))
	for _, id := range s.order {
		users = append(users, s.users[id])
	}

	s.mu.Unlock()

	writePage(w, r, users)
}

func (s *Server) listPosts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()

	posts := make([]interface{}, 0, len(s.posts))
	for _, post := range s.posts {
		posts = append(posts, post)
	}

	s.mu.Unlock()

	writePage(w, r, posts)
}

func (s *Server) getPost(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, skella.ErrorIDBadRequest, "Invalid post id")

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, post := range s.posts {
		if post.ID == id {
			writeJSON(w, http.StatusOK, post)

			return
		}
	}

	writeError(w, r, http.StatusNotFound, skella.ErrorIDResourceNotFound, "No such post")
}

func (s *Server) sessionUser(r *http.Request) *User {
	cookie, err := r.Cookie(constants.DefaultSessionCookie)
	if err != nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, found := s.sessions[cookie.Value]
	if !found {
		return nil
	}

	return s.users[id]
}

func (s *Server) userByEmail(email string) *User {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.Email == email {
			return user
		}
	}

	return nil
}

// writePage answers with the offset/limit/objects envelope. A zero limit returns everything.
func writePage(w http.ResponseWriter, r *http.Request, objects []interface{}) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	offset = min(max(offset, 0), len(objects))

	end := len(objects)
	if limit > 0 {
		end = min(offset+limit, len(objects))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		constants.PropertyOffset:  offset,
		constants.PropertyLimit:   limit,
		constants.PropertyObjects: objects[offset:end],
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", constants.ContentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, id, message string) {
	writeJSON(w, status, skella.APIError{ID: id, Message: message, URL: r.URL.Path})
}
