package validate

import (
	"strconv"
	"strings"

	"github.com/mesh-intelligence/worksite/pkg/types"
)

// WorkerForm holds the coerced input of the worker form.
type WorkerForm struct {
	Name     string  `json:"name" validate:"min=2,max=50"`
	Age      float64 `json:"age" validate:"min=18,max=100,integer"`
	Position string  `json:"position" validate:"min=2,max=50"`
	Salary   float64 `json:"salary" validate:"min=0,max=9007199254740991,integer"`
}

// Worker validates the worker form values and returns the worker they
// describe, or Errors.
func Worker(values map[string]string) (types.Worker, error) {
	errs := Errors{}
	form := WorkerForm{
		Name:     text(values, "name"),
		Age:      number(values, "age", errs),
		Position: text(values, "position"),
		Salary:   number(values, "salary", errs),
	}
	if errs = check(form, errs); len(errs) > 0 {
		return types.Worker{}, errs
	}
	return types.Worker{
		ID:       id(values),
		Name:     form.Name,
		Age:      int(form.Age),
		Position: form.Position,
		Salary:   int64(form.Salary),
	}, nil
}

// WorkerValues returns the form values of w, e.g. to prefill an edit.
func WorkerValues(w types.Worker) map[string]string {
	values := map[string]string{
		"name":     w.Name,
		"age":      strconv.Itoa(w.Age),
		"position": w.Position,
		"salary":   strconv.FormatInt(w.Salary, 10),
	}
	if w.ID > 0 {
		values["id"] = strconv.FormatInt(w.ID, 10)
	}
	return values
}

// ProjectForm holds the coerced input of the project form.
type ProjectForm struct {
	Name        string  `json:"name" validate:"min=2,max=100"`
	Description string  `json:"description" validate:"min=10,max=500"`
	Status      string  `json:"status" validate:"oneof=active completed on_hold cancelled"`
	StartDate   string  `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate     string  `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Latitude    float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude   float64 `json:"longitude" validate:"min=-180,max=180"`
}

// Project validates the project form values and returns the project they
// describe, or Errors. Status defaults to active.
func Project(values map[string]string) (types.Project, error) {
	errs := Errors{}
	form := ProjectForm{
		Name:        text(values, "name"),
		Description: text(values, "description"),
		Status:      strings.ToLower(text(values, "status")),
		StartDate:   text(values, "start_date"),
		EndDate:     text(values, "end_date"),
		Latitude:    number(values, "latitude", errs),
		Longitude:   number(values, "longitude", errs),
	}
	if form.Status == "" {
		form.Status = types.ProjectActive
	}
	errs = check(form, errs)
	if _, bad := errs["start_date"]; !bad && form.EndDate != "" && form.EndDate < form.StartDate {
		if _, bad := errs["end_date"]; !bad {
			errs["end_date"] = "End date must not be before start date."
		}
	}
	if len(errs) > 0 {
		return types.Project{}, errs
	}
	return types.Project{
		ID:          id(values),
		Name:        form.Name,
		Description: form.Description,
		Status:      form.Status,
		StartDate:   form.StartDate,
		EndDate:     form.EndDate,
		Latitude:    form.Latitude,
		Longitude:   form.Longitude,
	}, nil
}

// ProjectValues returns the form values of p.
func ProjectValues(p types.Project) map[string]string {
	values := map[string]string{
		"name":        p.Name,
		"description": p.Description,
		"status":      p.Status,
		"start_date":  p.StartDate,
		"end_date":    p.EndDate,
		"latitude":    strconv.FormatFloat(p.Latitude, 'f', -1, 64),
		"longitude":   strconv.FormatFloat(p.Longitude, 'f', -1, 64),
	}
	if p.ID > 0 {
		values["id"] = strconv.FormatInt(p.ID, 10)
	}
	return values
}

// LoginForm holds the login form input.
type LoginForm struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login validates the login form values.
func Login(values map[string]string) (types.Credentials, error) {
	form := LoginForm{
		Username: text(values, "username"),
		Password: values["password"],
	}
	if errs := check(form, Errors{}); len(errs) > 0 {
		return types.Credentials{}, errs
	}
	return types.Credentials{Username: form.Username, Password: form.Password}, nil
}

// RegisterForm holds the sign-up form input.
type RegisterForm struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// Register validates the sign-up form values.
func Register(values map[string]string) (types.Registration, error) {
	form := RegisterForm{
		Username: text(values, "username"),
		Email:    text(values, "email"),
		Password: values["password"],
	}
	if errs := check(form, Errors{}); len(errs) > 0 {
		return types.Registration{}, errs
	}
	return types.Registration{Username: form.Username, Email: form.Email, Password: form.Password}, nil
}
