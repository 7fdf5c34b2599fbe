package apitest

import (
	"cmp"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mesh-intelligence/worksite/pkg/types"
)

const maxPageSize = 100

// pageParams reads page and page_size, defaulting to 1 and 10.
func pageParams(c *gin.Context) (page, size int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ = strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(types.DefaultPageSize)))
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = types.DefaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}

func paginate[T any](items []T, page, size int) types.Page[T] {
	total := len(items)
	start := min((page-1)*size, total)
	end := min(start+size, total)
	data := make([]T, end-start)
	copy(data, items[start:end])
	return types.Page[T]{Data: data, Total: total, Page: page, PageSize: size}
}

func queryInt(c *gin.Context, key string) (int64, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return 0, false
	}
	return id, true
}

func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func (s *Server) listWorkers(c *gin.Context) {
	uid := currentUser(c)
	search := c.Query("search")
	position := c.Query("position")
	minAge, hasMinAge := queryInt(c, "min_age")
	maxAge, hasMaxAge := queryInt(c, "max_age")
	minSalary, hasMinSalary := queryInt(c, "min_salary")
	maxSalary, hasMaxSalary := queryInt(c, "max_salary")

	s.mu.Lock()
	var out []types.Worker
	for _, w := range s.workers {
		switch {
		case w.UserID != uid:
		case search != "" && !contains(w.Name, search) && !contains(w.Position, search):
		case position != "" && !contains(w.Position, position):
		case hasMinAge && int64(w.Age) < minAge:
		case hasMaxAge && int64(w.Age) > maxAge:
		case hasMinSalary && w.Salary < minSalary:
		case hasMaxSalary && w.Salary > maxSalary:
		default:
			out = append(out, w)
		}
	}
	s.mu.Unlock()

	desc := strings.EqualFold(c.Query("sort_order"), "desc")
	sortBy := c.DefaultQuery("sort_by", "id")
	slices.SortFunc(out, func(a, b types.Worker) int {
		var r int
		switch sortBy {
		case "name":
			r = cmp.Compare(a.Name, b.Name)
		case "age":
			r = cmp.Compare(a.Age, b.Age)
		case "position":
			r = cmp.Compare(a.Position, b.Position)
		case "salary":
			r = cmp.Compare(a.Salary, b.Salary)
		}
		if r == 0 {
			r = cmp.Compare(a.ID, b.ID)
		}
		if desc {
			return -r
		}
		return r
	})

	page, size := pageParams(c)
	c.JSON(http.StatusOK, paginate(out, page, size))
}

func (s *Server) getWorker(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	w, found := s.ownedWorker(currentUser(c), id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Worker not found"})
		return
	}
	c.JSON(http.StatusOK, w)
}

func (s *Server) ownedWorker(uid, id int64) (types.Worker, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.workers[id]
	if !ok || w.UserID != uid {
		return types.Worker{}, false
	}
	return w, true
}

func (s *Server) createWorker(c *gin.Context) {
	var w types.Worker
	if err := c.ShouldBindJSON(&w); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if w.Name == "" || w.Position == "" || w.Age <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name, age and position are required"})
		return
	}
	w.ID = 0
	created := s.SeedWorker(types.User{ID: currentUser(c)}, w)
	c.JSON(http.StatusCreated, created)
}

func (s *Server) updateWorker(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in types.Worker
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	uid := currentUser(c)
	s.mu.Lock()
	w, found := s.workers[id]
	if !found || w.UserID != uid {
		s.mu.Unlock()
		c.JSON(http.StatusNotFound, gin.H{"error": "Worker not found"})
		return
	}
	w.Name, w.Age, w.Position, w.Salary = in.Name, in.Age, in.Position, in.Salary
	now := s.now().UTC()
	w.UpdatedAt = &now
	s.workers[id] = w
	s.mu.Unlock()

	c.JSON(http.StatusOK, w)
}

func (s *Server) deleteWorker(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	uid := currentUser(c)
	s.mu.Lock()
	w, found := s.workers[id]
	if found && w.UserID == uid {
		delete(s.workers, id)
		for pid, p := range s.projects {
			p.Workers = slices.DeleteFunc(p.Workers, func(pw types.Worker) bool { return pw.ID == id })
			s.projects[pid] = p
		}
	}
	s.mu.Unlock()

	if !found || w.UserID != uid {
		c.JSON(http.StatusNotFound, gin.H{"error": "Worker not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listProjects(c *gin.Context) {
	uid := currentUser(c)
	name := c.Query("name")
	status := c.Query("status")
	search := c.Query("search")

	s.mu.Lock()
	var out []types.Project
	for _, p := range s.projects {
		switch {
		case p.UserID != uid:
		case name != "" && !contains(p.Name, name):
		case status != "" && p.Status != status:
		case search != "" && !contains(p.Name, search) && !contains(p.Description, search):
		default:
			out = append(out, p)
		}
	}
	s.mu.Unlock()

	desc := strings.EqualFold(c.Query("sort_order"), "desc")
	sortBy := c.DefaultQuery("sort_by", "id")
	slices.SortFunc(out, func(a, b types.Project) int {
		var r int
		switch sortBy {
		case "name":
			r = cmp.Compare(a.Name, b.Name)
		case "status":
			r = cmp.Compare(a.Status, b.Status)
		case "start_date":
			r = cmp.Compare(a.StartDate, b.StartDate)
		}
		if r == 0 {
			r = cmp.Compare(a.ID, b.ID)
		}
		if desc {
			return -r
		}
		return r
	})

	page, size := pageParams(c)
	c.JSON(http.StatusOK, paginate(out, page, size))
}

func (s *Server) ownedProject(uid, id int64) (types.Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok || p.UserID != uid {
		return types.Project{}, false
	}
	return p, true
}

func (s *Server) getProject(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	p, found := s.ownedProject(currentUser(c), id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func validStatus(status string) bool {
	return slices.Contains(types.ProjectStatuses, status)
}

func (s *Server) createProject(c *gin.Context) {
	var p types.Project
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if p.Name == "" || p.StartDate == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name and start date are required"})
		return
	}
	if p.Status == "" {
		p.Status = types.ProjectActive
	}
	if !validStatus(p.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}
	p.ID = 0
	p.Workers = nil
	created := s.SeedProject(types.User{ID: currentUser(c)}, p)
	c.JSON(http.StatusCreated, created)
}

func (s *Server) updateProject(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in types.Project
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if in.Status != "" && !validStatus(in.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}

	uid := currentUser(c)
	s.mu.Lock()
	p, found := s.projects[id]
	if !found || p.UserID != uid {
		s.mu.Unlock()
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}
	p.Name, p.Description, p.StartDate, p.EndDate = in.Name, in.Description, in.StartDate, in.EndDate
	p.Latitude, p.Longitude = in.Latitude, in.Longitude
	if in.Status != "" {
		p.Status = in.Status
	}
	now := s.now().UTC()
	p.UpdatedAt = &now
	s.projects[id] = p
	s.mu.Unlock()

	c.JSON(http.StatusOK, p)
}

func (s *Server) deleteProject(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	uid := currentUser(c)
	s.mu.Lock()
	p, found := s.projects[id]
	if found && p.UserID == uid {
		delete(s.projects, id)
	}
	s.mu.Unlock()

	if !found || p.UserID != uid {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

type assignRequest struct {
	WorkerID int64 `json:"workerId"`
}

func (s *Server) assignWorker(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.WorkerID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid worker ID"})
		return
	}

	uid := currentUser(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	p, found := s.projects[id]
	if !found || p.UserID != uid {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}
	w, found := s.workers[req.WorkerID]
	if !found || w.UserID != uid {
		c.JSON(http.StatusNotFound, gin.H{"error": "Worker not found"})
		return
	}
	if p.HasWorker(w.ID) {
		c.JSON(http.StatusConflict, gin.H{"error": "Worker already assigned to project"})
		return
	}
	p.Workers = append(p.Workers, w)
	s.projects[id] = p
	c.JSON(http.StatusOK, p)
}

func (s *Server) unassignWorker(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	workerID, ok := idParam(c, "workerId")
	if !ok {
		return
	}

	uid := currentUser(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	p, found := s.projects[id]
	if !found || p.UserID != uid {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}
	if !p.HasWorker(workerID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Worker not assigned to project"})
		return
	}
	p.Workers = slices.DeleteFunc(p.Workers, func(w types.Worker) bool { return w.ID == workerID })
	s.projects[id] = p
	c.Status(http.StatusNoContent)
}

func (s *Server) availableWorkers(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	uid := currentUser(c)
	s.mu.Lock()
	p, found := s.projects[id]
	if !found || p.UserID != uid {
		s.mu.Unlock()
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}
	var out []types.Worker
	for _, w := range s.workers {
		if w.UserID == uid && !p.HasWorker(w.ID) {
			out = append(out, w)
		}
	}
	s.mu.Unlock()

	slices.SortFunc(out, func(a, b types.Worker) int { return cmp.Compare(a.ID, b.ID) })
	page, size := pageParams(c)
	c.JSON(http.StatusOK, paginate(out, page, size))
}
