package api

import (
	"time"

	"taskhub/internal/store"
)

// fieldErrors collects per-field validation messages, serialized under the
// "errors" key of a failure response.
type fieldErrors map[string][]string

func (fe fieldErrors) add(field, msg string) {
	fe[field] = append(fe[field], msg)
}

func (fe fieldErrors) ok() bool { return len(fe) == 0 }

func validDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (req *registerRequest) validate() fieldErrors {
	errs := fieldErrors{}
	if req.Name == "" {
		errs.add("name", "required and must not be empty")
	}
	if req.Email == "" {
		errs.add("email", "required and must not be empty")
	}
	if req.Password == "" {
		errs.add("password", "required and must not be empty")
	}
	return errs
}

type projectCreateRequest struct {
	Name string  `json:"name"`
	Desc *string `json:"desc"`
}

func (req *projectCreateRequest) validate() fieldErrors {
	errs := fieldErrors{}
	if req.Name == "" {
		errs.add("name", "required and must not be empty")
	}
	if req.Desc != nil && *req.Desc == "" {
		errs.add("desc", "must not be empty")
	}
	return errs
}

type projectUpdateRequest struct {
	Name *string `json:"name"`
	Desc *string `json:"desc"`
}

func (req *projectUpdateRequest) validate() fieldErrors {
	errs := fieldErrors{}
	if req.Name != nil && *req.Name == "" {
		errs.add("name", "must not be empty")
	}
	if req.Desc != nil && *req.Desc == "" {
		errs.add("desc", "must not be empty")
	}
	return errs
}

func (req *projectUpdateRequest) patch() store.ProjectPatch {
	return store.ProjectPatch{Name: req.Name, Desc: req.Desc}
}

type taskCreateRequest struct {
	Name     string   `json:"name"`
	Desc     *string  `json:"desc"`
	DueDate  *string  `json:"due_date"`
	InitDate *string  `json:"init_date"`
	Expected *float64 `json:"expected"`
	Progress *int     `json:"progress"`
}

func (req *taskCreateRequest) validate() fieldErrors {
	errs := fieldErrors{}
	if req.Name == "" {
		errs.add("name", "required and must not be empty")
	}
	validateTaskFields(errs, req.Desc, req.DueDate, req.InitDate, req.Expected, req.Progress)
	return errs
}

func (req *taskCreateRequest) input() store.TaskInput {
	in := store.TaskInput{Name: req.Name}
	if req.Desc != nil {
		in.Desc = *req.Desc
	}
	if req.DueDate != nil {
		in.DueDate = *req.DueDate
	}
	if req.InitDate != nil {
		in.InitDate = *req.InitDate
	}
	if req.Expected != nil {
		in.Expected = *req.Expected
	}
	if req.Progress != nil {
		in.Progress = *req.Progress
	}
	return in
}

type taskUpdateRequest struct {
	Name     *string  `json:"name"`
	Desc     *string  `json:"desc"`
	DueDate  *string  `json:"due_date"`
	InitDate *string  `json:"init_date"`
	Expected *float64 `json:"expected"`
	Progress *int     `json:"progress"`
}

func (req *taskUpdateRequest) validate() fieldErrors {
	errs := fieldErrors{}
	if req.Name != nil && *req.Name == "" {
		errs.add("name", "must not be empty")
	}
	validateTaskFields(errs, req.Desc, req.DueDate, req.InitDate, req.Expected, req.Progress)
	return errs
}

func (req *taskUpdateRequest) patch() store.TaskPatch {
	return store.TaskPatch{
		Name:     req.Name,
		Desc:     req.Desc,
		DueDate:  req.DueDate,
		InitDate: req.InitDate,
		Expected: req.Expected,
		Progress: req.Progress,
	}
}

// validateTaskFields covers the rules shared by task create and update:
// calendar dates, expected >= 0, progress in [0, 100].
func validateTaskFields(errs fieldErrors, desc, dueDate, initDate *string, expected *float64, progress *int) {
	if desc != nil && *desc == "" {
		errs.add("desc", "must not be empty")
	}
	if dueDate != nil && !validDate(*dueDate) {
		errs.add("due_date", "must be a date formatted YYYY-MM-DD")
	}
	if initDate != nil && !validDate(*initDate) {
		errs.add("init_date", "must be a date formatted YYYY-MM-DD")
	}
	if expected != nil && *expected < 0 {
		errs.add("expected", "must not be negative")
	}
	if progress != nil && (*progress < 0 || *progress > 100) {
		errs.add("progress", "must be between 0 and 100")
	}
}

type workCreateRequest struct {
	Date string   `json:"date"`
	Time *float64 `json:"time"`
}

func (req *workCreateRequest) validate() fieldErrors {
	errs := fieldErrors{}
	if req.Date == "" {
		errs.add("date", "required and must not be empty")
	} else if !validDate(req.Date) {
		errs.add("date", "must be a date formatted YYYY-MM-DD")
	}
	if req.Time == nil {
		errs.add("time", "required")
	}
	return errs
}

type workUpdateRequest struct {
	Time *float64 `json:"time"`
}

func (req *workUpdateRequest) validate() fieldErrors {
	errs := fieldErrors{}
	if req.Time == nil {
		errs.add("time", "required")
	}
	return errs
}
