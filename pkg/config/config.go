package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config agrupa a configuração da aplicação (leitura via Viper a partir de
// variáveis de ambiente e, opcionalmente, arquivo .env).
type Config struct {
	App   AppConfig
	DB    DBConfig
	HTTP  HTTPConfig
	Sefaz SefazConfig
}

// AppConfig configuração geral da aplicação.
type AppConfig struct {
	Env  string // development, staging, production
	Name string
}

// SefazConfig configuração do transporte contra o web service da SEFAZ.
// O ambiente de emissão (produção/homologação) NÃO fica aqui: ele vem do
// cadastro da empresa emitente, nunca é inferido de outro sinal.
type SefazConfig struct {
	// Timeout da chamada SOAP. Estouro de timeout é "desfecho desconhecido":
	// a SEFAZ pode ter processado o lote mesmo sem resposta.
	Timeout time.Duration
	// CABundlePath: caminho opcional de um PEM com a cadeia de CAs da SEFAZ
	// para pinning. Vazio = pool de CAs do sistema.
	CABundlePath string
	// InsecureSkipVerify desliga a validação do certificado do servidor.
	// Apenas para depuração local; o default é false e o uso é logado.
	InsecureSkipVerify bool
}

// DBConfig configuração do PostgreSQL. Se DatabaseURL estiver definido, é
// usado como connection string completo; caso contrário o DSN é montado a
// partir dos campos individuais.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
}

// ConnectionString devolve o DSN a usar: DATABASE_URL se definido, senão o DSN montado.
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN monta o connection string do PostgreSQL com URL encoding para
// caracteres especiais na senha.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// HTTPConfig configuração do servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devolve o endereço de escuta (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load lê a configuração de variáveis de ambiente (e opcionalmente de um
// arquivo .env no diretório de trabalho). Env vars têm prioridade.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // arquivo é opcional

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:  getString(v, "APP_ENV", "development"),
			Name: getString(v, "APP_NAME", "emissor-api"),
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "emissor"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		Sefaz: SefazConfig{
			Timeout:            time.Duration(getInt(v, "SEFAZ_TIMEOUT_SECONDS", 60)) * time.Second,
			CABundlePath:       getString(v, "SEFAZ_CA_BUNDLE", ""),
			InsecureSkipVerify: getBool(v, "SEFAZ_INSECURE_SKIP_VERIFY", false),
		},
	}

	return cfg, nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case string:
			n, _ := strconv.Atoi(v.GetString(key))
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}

func getBool(v *viper.Viper, key string, def bool) bool {
	if v.IsSet(key) {
		return v.GetBool(key)
	}
	return def
}
