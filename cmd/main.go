package main

import "github.com/adanyl0v/smart-goals/internal/app"

func main() {
	app.InitDefaultLogger()
	app.MustReadEnv()
	app.MustInitApplicationLogger()
	app.InitMetrics()

	app.MustConnectPostgres()
	defer app.DisconnectPostgres()

	app.MustOpenGoalStore()
	defer app.CloseGoalStore()

	app.MustListenAndServeHTTP()
}
