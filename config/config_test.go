package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestMissing(t *testing.T) {
	tests := []struct {
		name string
		set  map[string]any
		want []string
	}{
		{
			name: "defaults need a jwt secret",
			want: []string{"auth.jwt_secret"},
		},
		{
			name: "sqlite with secret",
			set:  map[string]any{"auth.jwt_secret": "s3cret"},
			want: []string{},
		},
		{
			name: "minio needs credentials",
			set:  map[string]any{"auth.jwt_secret": "s3cret", "media.backend": "minio", "minio.access_key": "key"},
			want: []string{"minio.secret_key"},
		},
		{
			name: "mongo uri has a default",
			set:  map[string]any{"auth.jwt_secret": "s3cret", "db.driver": "mongo"},
			want: []string{},
		},
		{
			name: "blank mongo uri",
			set:  map[string]any{"auth.jwt_secret": "s3cret", "db.driver": "mongo", "mongo.uri": ""},
			want: []string{"mongo.uri"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			t.Cleanup(viper.Reset)

			setDefaults()
			for k, v := range tt.set {
				viper.Set(k, v)
			}

			assert.Equal(t, tt.want, Missing())
		})
	}
}

func TestDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	setDefaults()

	assert.Equal(t, "5000", viper.GetString("server.port"))
	assert.Equal(t, "sqlite", viper.GetString("db.driver"))
	assert.Equal(t, "music-mvp", viper.GetString("mongo.database"))
	assert.Equal(t, 168, viper.GetInt("auth.token_ttl_hours"))
	assert.Equal(t, []string{"*"}, viper.GetStringSlice("server.cors_origins"))
	assert.False(t, viper.GetBool("catalog.seed_on_start"))
}
