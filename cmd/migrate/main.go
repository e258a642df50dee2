package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"

	"stockledger/config"
	"stockledger/internal/pkg/database"
	"stockledger/internal/pkg/logger"
)

// gooseLogger encaminha a saída do goose para o logger estruturado.
type gooseLogger struct {
	log logger.Logger
}

func (g gooseLogger) Printf(format string, v ...interface{}) {
	g.log.Info(strings.TrimSpace(fmt.Sprintf(format, v...)), nil)
}

func (g gooseLogger) Fatalf(format string, v ...interface{}) {
	g.log.Fatal(strings.TrimSpace(fmt.Sprintf(format, v...)), nil)
}

// Uso: migrate [-dir ./sql] [up|down|status|version|redo|reset] [args...]
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ Aviso: arquivo .env não encontrado. Usando apenas o ambiente do sistema.")
	}

	cfg := config.LoadConfig()
	appLog := logger.NewLogger(cfg.LogLevel).With(map[string]interface{}{"command": "migrate"})

	var migrationsDir string
	flag.StringVar(&migrationsDir, "dir", "./sql", "diretório com as migrações")
	flag.Parse()

	db, err := database.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		appLog.Fatal("goose: falha ao conectar ao banco.", err)
	}
	defer db.Close()

	goose.SetLogger(gooseLogger{log: appLog})
	if err := goose.SetDialect("postgres"); err != nil {
		appLog.Fatal("goose: dialeto não suportado.", err)
	}

	arguments := flag.Args()
	if len(arguments) == 0 {
		arguments = []string{"up"}
	}
	command, args := arguments[0], arguments[1:]

	if err := goose.Run(command, db, migrationsDir, args...); err != nil {
		appLog.Fatal(fmt.Sprintf("goose %s falhou.", command), err)
	}
	appLog.Info(fmt.Sprintf("goose %s concluído.", command), map[string]interface{}{"dir": migrationsDir})
}
