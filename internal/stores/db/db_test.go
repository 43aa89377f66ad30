package db

import (
	"testing"

	"github.com/ethanbaker/receptionist/pkg/utils"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSNFromConfig(t *testing.T) {
	tests := []struct {
		name     string
		values   map[string]string
		wantOK   bool
		wantAddr string
		wantDB   string
		wantErr  bool
	}{
		{
			name:   "nothing configured",
			values: map[string]string{},
		},
		{
			name: "mysql keys",
			values: map[string]string{
				"MYSQL_HOST":          "db",
				"MYSQL_PORT":          "3307",
				"MYSQL_USERNAME":      "root",
				"MYSQL_ROOT_PASSWORD": "secret",
				"MYSQL_DATABASE":      "receptionist",
			},
			wantOK:   true,
			wantAddr: "db:3307",
			wantDB:   "receptionist",
		},
		{
			name:     "default port",
			values:   map[string]string{"MYSQL_HOST": "db", "MYSQL_DATABASE": "r"},
			wantOK:   true,
			wantAddr: "db:3306",
			wantDB:   "r",
		},
		{
			name: "database url wins",
			values: map[string]string{
				"DATABASE_URL": "user:pw@tcp(mysql:3306)/calls",
				"MYSQL_HOST":   "ignored",
			},
			wantOK:   true,
			wantAddr: "mysql:3306",
			wantDB:   "calls",
		},
		{
			name:    "bad database url",
			values:  map[string]string{"DATABASE_URL": "not a dsn"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := utils.NewConfig(tt.values)

			dsn, ok, err := DSNFromConfig(cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				assert.Empty(t, dsn)
				return
			}

			parsed, err := mysql.ParseDSN(dsn)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAddr, parsed.Addr)
			assert.Equal(t, tt.wantDB, parsed.DBName)
			assert.True(t, parsed.ParseTime)
		})
	}
}
