// Package postgres implements the store and task persistence interfaces on
// PostgreSQL through database/sql with the pgx driver. Driver errors are
// translated to store sentinels by MapError. Schema migrations are embedded
// and applied with goose.
package postgres
