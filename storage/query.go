// Package storage builds the range queries used to scan the
// partitioned key-value store. Rows are partitioned by
// (predecessor_id, current_account_id) and clustered by key, so a
// prefix scan is a range over the clustering column.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
)

// Sentinel sorts after every character that can appear in a key. A
// prefix scan covers the half open range [prefix, prefix+Sentinel)
const Sentinel = "\u00ff"

const (
	// DefaultTable holds the latest value of every key
	DefaultTable = "s_kv_last"

	// DefaultTimeout is the server side timeout of every query
	DefaultTimeout = 10 * time.Second

	// ReadConsistency tolerates a single replica read
	ReadConsistency = gocql.LocalOne

	rowColumns = "predecessor_id, current_account_id, key, value, " +
		"block_height, block_timestamp, receipt_id, tx_hash"
)

// Query is a bound statement ready to be executed by the storage
// layer. Start and End are empty for queries without range bounds
type Query struct {
	Statement   string
	Start       string
	End         string
	Consistency gocql.Consistency
	Timeout     time.Duration
}

// Ranged reports whether the query is bounded by a key range
func (q Query) Ranged() bool {
	return len(q.End) > 0
}

// Values returns the values to bind to the statement for the
// partition of the provided accounts
func (q Query) Values(predecessorID, currentAccountID string) []interface{} {
	if !q.Ranged() {
		return []interface{}{predecessorID, currentAccountID}
	}

	return []interface{}{predecessorID, currentAccountID, q.Start, q.End}
}

// Session is implemented by *gocql.Session
type Session interface {
	Query(stmt string, values ...interface{}) *gocql.Query
}

// Bind creates the gocql query for the partition of the provided
// accounts. The returned cancel function releases the timeout of the
// query and must be called once the query is done
func (q Query) Bind(
	ctx context.Context,
	session Session,
	predecessorID, currentAccountID string,
) (*gocql.Query, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, q.Timeout)
	query := session.Query(q.Statement, q.Values(predecessorID, currentAccountID)...).
		WithContext(ctx).
		Consistency(q.Consistency)
	return query, cancel
}

// PrefixEnd returns the exclusive upper bound of the keys that
// start with prefix
func PrefixEnd(prefix string) string {
	return prefix + Sentinel
}

// Builder builds the queries over a table
type Builder struct {
	table   string
	timeout time.Duration
}

// NewBuilder creates a builder for the table. The table name is
// interpolated in the statements and must be a trusted identifier
func NewBuilder(table string, timeout time.Duration) *Builder {
	return &Builder{table: table, timeout: timeout}
}

// PrefixScan selects the full rows whose key starts with prefix
func (b *Builder) PrefixScan(prefix string) Query {
	return b.ranged(fmt.Sprintf("SELECT %s FROM %s "+
		"WHERE predecessor_id = ? AND current_account_id = ? AND key >= ? AND key < ?",
		rowColumns, b.table), prefix)
}

// KeysPrefixScan selects only the keys that start with prefix
func (b *Builder) KeysPrefixScan(prefix string) Query {
	return b.ranged(fmt.Sprintf("SELECT key FROM %s "+
		"WHERE predecessor_id = ? AND current_account_id = ? AND key >= ? AND key < ?",
		b.table), prefix)
}

// PrefixCount counts the rows whose key starts with prefix. A nil
// prefix counts every row of the partition
func (b *Builder) PrefixCount(prefix *string) Query {
	if prefix == nil {
		return Query{
			Statement: fmt.Sprintf("SELECT COUNT(*) FROM %s "+
				"WHERE predecessor_id = ? AND current_account_id = ?", b.table),
			Consistency: ReadConsistency,
			Timeout:     b.timeout,
		}
	}

	return b.ranged(fmt.Sprintf("SELECT COUNT(*) FROM %s "+
		"WHERE predecessor_id = ? AND current_account_id = ? AND key >= ? AND key < ?",
		b.table), *prefix)
}

func (b *Builder) ranged(statement, prefix string) Query {
	return Query{
		Statement:   statement,
		Start:       prefix,
		End:         PrefixEnd(prefix),
		Consistency: ReadConsistency,
		Timeout:     b.timeout,
	}
}
