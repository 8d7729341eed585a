package surreal

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/surrealdb/surrealdb.go"
)

type Client struct {
	db *surrealdb.DB
}

// identifierRegex ensures that table names and fields only contain alphanumeric characters and underscores
var identifierRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

func validateIdentifier(s string) error {
	if !identifierRegex.MatchString(s) {
		return fmt.Errorf("invalid identifier: %s", s)
	}
	return nil
}

func NewClient(ctx context.Context, host, user, pass, namespace, database string) (*Client, error) {
	db, err := surrealdb.New(host)
	if err != nil {
		return nil, fmt.Errorf("failed to create surrealdb client: %w", err)
	}

	if _, err = db.SignIn(ctx, map[string]interface{}{
		"user": user,
		"pass": pass,
	}); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to signin to surrealdb: %w", err)
	}

	if err = db.Use(ctx, namespace, database); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to use surrealdb namespace/database: %w", err)
	}

	return &Client{db: db}, nil
}

func (c *Client) Close() {
	c.db.Close(context.Background())
}

// Query runs sql and returns the result set of the last statement.
func (c *Client) Query(ctx context.Context, sql string, vars map[string]interface{}) (interface{}, error) {
	if vars == nil {
		vars = map[string]interface{}{}
	}
	result, err := surrealdb.Query[interface{}](ctx, c.db, sql, vars)
	if err != nil {
		return nil, err
	}
	return unwrapResult(result), nil
}

// unwrapResult digs the Result field out of the driver's query response,
// which is either a single struct or a slice with one entry per statement.
func unwrapResult(result interface{}) interface{} {
	rv := reflect.ValueOf(result)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Struct:
		if resField := rv.FieldByName("Result"); resField.IsValid() {
			return resField.Interface()
		}
	case reflect.Slice:
		if rv.Len() == 0 {
			return nil
		}
		lastElem := rv.Index(rv.Len() - 1)
		if lastElem.Kind() == reflect.Struct {
			if resField := lastElem.FieldByName("Result"); resField.IsValid() {
				return resField.Interface()
			}
		}
	}
	return result
}

// Rows runs sql and expects a list of records back.
func (c *Client) Rows(ctx context.Context, sql string, vars map[string]interface{}) ([]interface{}, error) {
	result, err := c.Query(ctx, sql, vars)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	rows, ok := result.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected result type: %T", result)
	}
	return rows, nil
}

func (c *Client) Create(ctx context.Context, table string, data interface{}) (interface{}, error) {
	if err := validateIdentifier(table); err != nil {
		return nil, err
	}
	result, err := surrealdb.Create[interface{}](ctx, c.db, table, data)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SelectWhere returns records of table matching every filter field, ordered
// by orderBy (descending when desc is set). A limit of 0 means no limit.
func (c *Client) SelectWhere(ctx context.Context, table string, filter map[string]interface{}, orderBy string, desc bool, limit int) ([]interface{}, error) {
	query, err := buildSelect(table, filter, orderBy, desc, limit)
	if err != nil {
		return nil, err
	}

	vars := make(map[string]interface{}, len(filter))
	for k, v := range filter {
		vars[k] = v
	}
	return c.Rows(ctx, query, vars)
}

func buildSelect(table string, filter map[string]interface{}, orderBy string, desc bool, limit int) (string, error) {
	if err := validateIdentifier(table); err != nil {
		return "", err
	}
	whereClause, err := buildWhereClause(filter)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT * FROM %s WHERE %s", table, whereClause)
	if orderBy != "" {
		if err := validateIdentifier(orderBy); err != nil {
			return "", err
		}
		dir := "ASC"
		if desc {
			dir = "DESC"
		}
		fmt.Fprintf(&b, " ORDER BY %s %s", orderBy, dir)
	}
	if limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", limit)
	}
	b.WriteString(";")
	return b.String(), nil
}

func buildWhereClause(filter map[string]interface{}) (string, error) {
	if len(filter) == 0 {
		return "true", nil
	}

	keys := make([]string, 0, len(filter))
	for k := range filter {
		// Validate filter keys
		if err := validateIdentifier(k); err != nil {
			return "", err
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s = $%s", k, k)
	}
	return strings.Join(parts, " AND "), nil
}
