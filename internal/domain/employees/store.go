package employees

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const employeeColumns = `
    id, full_name, tag_name, tag_last_name,
    COALESCE(job_functions, ''),
    birthday,
    status,
    COALESCE(email, ''),
    COALESCE(phone, ''),
    COALESCE(mobile, ''),
    photo_url, created_at, updated_at`

// updatableColumns whitelists the patch keys Update turns into SQL.
var updatableColumns = map[string]string{
	FieldFullName:     "full_name",
	FieldTagName:      "tag_name",
	FieldTagLastName:  "tag_last_name",
	FieldJobFunctions: "job_functions",
	FieldBirthday:     "birthday",
	FieldStatus:       "status",
	FieldEmail:        "email",
	FieldPhone:        "phone",
	FieldMobile:       "mobile",
}

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func scanEmployee(row pgx.Row) (*Employee, error) {
	var emp Employee
	if err := row.Scan(
		&emp.ID, &emp.FullName, &emp.TagName, &emp.TagLastName,
		&emp.JobFunctions, &emp.Birthday, &emp.Status,
		&emp.Email, &emp.Phone, &emp.Mobile,
		&emp.PhotoURL, &emp.CreatedAt, &emp.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &emp, nil
}

func collectEmployees(rows pgx.Rows) ([]Employee, error) {
	defer rows.Close()
	out := []Employee{}
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *emp)
	}
	return out, rows.Err()
}

func (s *Store) Create(ctx context.Context, emp NewEmployee) (*Employee, error) {
	status := emp.Status
	if status == "" {
		status = StatusActive
	}
	row := s.DB.QueryRow(ctx, `
    INSERT INTO employees (full_name, tag_name, tag_last_name, job_functions, birthday, status, photo_url)
    VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7)
    RETURNING `+employeeColumns,
		emp.FullName, emp.TagName, emp.TagLastName, emp.JobFunctions, emp.Birthday, status, emp.PhotoURL,
	)
	created, err := scanEmployee(row)
	if err != nil {
		return nil, translateError(err)
	}
	return created, nil
}

func (s *Store) Get(ctx context.Context, id int64) (*Employee, error) {
	emp, err := scanEmployee(s.DB.QueryRow(ctx, `
    SELECT `+employeeColumns+`
    FROM employees
    WHERE id = $1
  `, id))
	if err != nil {
		return nil, translateError(err)
	}
	return emp, nil
}

func (s *Store) List(ctx context.Context) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+employeeColumns+`
    FROM employees
    ORDER BY full_name, id
  `)
	if err != nil {
		return nil, err
	}
	return collectEmployees(rows)
}

func (s *Store) Search(ctx context.Context, filter SearchFilter) ([]Employee, int, error) {
	where, args := searchClause(filter)

	var total int
	if err := s.DB.QueryRow(ctx, `SELECT COUNT(1) FROM employees`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, filter.Offset)
	rows, err := s.DB.Query(ctx, `
    SELECT `+employeeColumns+`
    FROM employees`+where+fmt.Sprintf(`
    ORDER BY full_name, id
    LIMIT $%d OFFSET $%d
  `, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	out, err := collectEmployees(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func searchClause(filter SearchFilter) (string, []any) {
	var conditions []string
	var args []any
	if filter.Name != "" {
		args = append(args, "%"+filter.Name+"%")
		conditions = append(conditions, fmt.Sprintf("full_name ILIKE $%d", len(args)))
	}
	if filter.JobFunction != "" {
		args = append(args, "%"+filter.JobFunction+"%")
		conditions = append(conditions, fmt.Sprintf("job_functions ILIKE $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// Update applies changes keyed by field name. Nil values write NULL.
func (s *Store) Update(ctx context.Context, id int64, changes map[string]any) (*Employee, error) {
	keys := make([]string, 0, len(changes))
	for key := range changes {
		if _, ok := updatableColumns[key]; ok {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return nil, ErrNoChanges
	}
	sort.Strings(keys)

	sets := make([]string, 0, len(keys)+1)
	args := make([]any, 0, len(keys)+1)
	for _, key := range keys {
		args = append(args, changes[key])
		sets = append(sets, fmt.Sprintf("%s = $%d", updatableColumns[key], len(args)))
	}
	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)

	emp, err := scanEmployee(s.DB.QueryRow(ctx, `
    UPDATE employees
    SET `+strings.Join(sets, ", ")+fmt.Sprintf(`
    WHERE id = $%d
    RETURNING `, len(args))+employeeColumns, args...))
	if err != nil {
		return nil, translateError(err)
	}
	return emp, nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	tag, err := s.DB.Exec(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return translateError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListByStatus(ctx context.Context, status string) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+employeeColumns+`
    FROM employees
    WHERE ($1 = '' OR status = $1)
    ORDER BY full_name, id
  `, status)
	if err != nil {
		return nil, err
	}
	return collectEmployees(rows)
}

// ListByIDs returns the employees whose id is in ids, ordered by full name.
// Unknown ids are skipped.
func (s *Store) ListByIDs(ctx context.Context, ids []int64) ([]Employee, error) {
	if len(ids) == 0 {
		return []Employee{}, nil
	}
	rows, err := s.DB.Query(ctx, `
    SELECT `+employeeColumns+`
    FROM employees
    WHERE id = ANY($1)
    ORDER BY full_name, id
  `, ids)
	if err != nil {
		return nil, err
	}
	return collectEmployees(rows)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.DB.Ping(ctx)
}

func translateError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" {
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
		}
		if strings.HasPrefix(pgErr.Code, "23") {
			return &ConstraintError{Constraint: pgErr.ConstraintName, Detail: pgErr.Detail}
		}
	}
	return err
}
