package repository

import "strings"

type RequestFilter struct {
	Q          string
	Status     string
	Priority   string
	Category   string
	AssignedTo string
	// VisibleTo restricts results to requests the user created or is
	// assigned to. Empty means no restriction.
	VisibleTo string
	Limit     int
	Offset    int
	Sort      string // created_at, updated_at, priority
	Order     string // asc|desc
}

// Normalize clamps paging and drops unknown sort keys.
func (f RequestFilter) Normalize() RequestFilter {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	f.Q = strings.TrimSpace(f.Q)
	f.Status = strings.TrimSpace(f.Status)
	f.Priority = strings.TrimSpace(f.Priority)
	f.Category = strings.TrimSpace(f.Category)
	f.AssignedTo = strings.TrimSpace(f.AssignedTo)
	f.Sort = sanitizeSort(f.Sort, "updated_at")
	f.Order = sanitizeOrder(f.Order, "desc")
	return f
}

// Where composes the WHERE clause and args. placeholder renders the n-th
// (1-based) bind parameter for the target driver.
func (f RequestFilter) Where(placeholder func(n int) string) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}
	next := func(v any) string {
		args = append(args, v)
		return placeholder(len(args))
	}

	if f.Q != "" {
		p := "%" + strings.ToLower(f.Q) + "%"
		clauses = append(clauses, "(LOWER(r.title) LIKE "+next(p)+" OR LOWER(r.description) LIKE "+next(p)+")")
	}
	if f.Status != "" {
		clauses = append(clauses, "r.status = "+next(f.Status))
	}
	if f.Priority != "" {
		clauses = append(clauses, "r.priority = "+next(f.Priority))
	}
	if f.Category != "" {
		clauses = append(clauses, "r.category = "+next(f.Category))
	}
	if f.AssignedTo != "" {
		clauses = append(clauses, "r.assigned_to = "+next(f.AssignedTo))
	}
	if f.VisibleTo != "" {
		clauses = append(clauses, "(r.created_by = "+next(f.VisibleTo)+" OR r.assigned_to = "+next(f.VisibleTo)+")")
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

func sanitizeSort(s, def string) string {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "created_at", "updated_at", "priority":
		return v
	default:
		return def
	}
}

func sanitizeOrder(o, def string) string {
	switch v := strings.ToLower(strings.TrimSpace(o)); v {
	case "asc", "desc":
		return v
	default:
		return def
	}
}
