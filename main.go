package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"WooWithWasp/internal/app"
	"WooWithWasp/internal/config"
	"WooWithWasp/internal/importer"
	"WooWithWasp/internal/version"
	"WooWithWasp/pkg/logging"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "woowithwasp",
	Short:         "Синхронизация заказов и возвратов WooCommerce с WASP Inventory Cloud",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "HTTP сервис и планировщик заданий",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return a.Serve(ctx)
	},
}

var runCmd = &cobra.Command{
	Use:   "run <job>",
	Short: "Разовый запуск задания планировщика",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		run, err := a.Scheduler.RunNow(cmd.Context(), args[0])
		if err != nil {
			return errors.Wrapf(err, "available jobs: %v", a.Scheduler.Jobs())
		}
		if err := printJSON(cmd, run); err != nil {
			return err
		}
		if run.Error != "" {
			return errors.New(run.Error)
		}
		return nil
	},
}

var importFlags struct {
	file   string
	year   int
	month  int
	sheet  string
	period string
}

var importCmd = &cobra.Command{
	Use:   "import-sales-returns",
	Short: "Загрузка продаж/возвратов из xlsx в wasp_sales_returns_sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		req := importer.Request{Year: importFlags.year, Month: importFlags.month, Sheet: importFlags.sheet}
		if importFlags.period != "" {
			var err error
			req.Year, req.Month, err = importer.ParsePeriod(importFlags.period)
			if err != nil {
				return err
			}
		}

		f, err := os.Open(importFlags.file)
		if err != nil {
			return errors.Wrapf(err, "failed os.Open(%s)", importFlags.file)
		}
		defer f.Close()

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Importer.Import(cmd.Context(), f, req)
		if err != nil {
			return err
		}
		return printJSON(cmd, result)
	},
}

var truncateCmd = &cobra.Command{
	Use:   "truncate <orders|sales-returns|retry-queue>",
	Short: "Очистка таблицы",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.Truncate(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: deleted %d\n", args[0], n)
		return err
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Версия",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "Version %s\n", version.GetVersion().String())
	},
}

func newApp() (*app.App, error) {
	logger := logging.GetLogger()

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := logging.Init(cfg.LOG.Debug == 1, cfg.LOG.Path); err != nil {
		return nil, err
	}
	logger.Infof("Version %s", version.GetVersion().String())
	return app.New(cfg)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "путь к config.ini")

	importCmd.Flags().StringVarP(&importFlags.file, "file", "f", "", "xlsx файл")
	importCmd.Flags().IntVar(&importFlags.year, "year", 0, "год выгрузки")
	importCmd.Flags().IntVar(&importFlags.month, "month", 0, "месяц выгрузки 1..12")
	importCmd.Flags().StringVar(&importFlags.sheet, "sheet", "", "лист Sales или Returns")
	importCmd.Flags().StringVar(&importFlags.period, "period", "", "месяц в свободной форме, например 2024-05")
	_ = importCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(serveCmd, runCmd, importCmd, truncateCmd, versionCmd)
}

func main() {
	logger := logging.GetLogger()
	if err := rootCmd.Execute(); err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}
