package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseName(t *testing.T) {
	tests := []struct {
		dsn     string
		want    string
		wantErr bool
	}{
		{dsn: "postgres://u:p@localhost:5432/facebridge?sslmode=disable", want: "facebridge"},
		{dsn: "postgres://localhost/audit", want: "audit"},
		{dsn: "postgres://localhost:5432", wantErr: true},
		{dsn: "postgres://%zz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			got, err := databaseName(tt.dsn)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
