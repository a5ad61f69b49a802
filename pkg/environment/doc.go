// Package environment carries the deployment environment (development,
// staging or production) through request contexts.
//
// The daemon parses APP_ENV once with Parse and installs Middleware on the
// router. Handlers and the HTTP error handler query the request context with
// IsDevelopment or IsProduction, for example to decide whether raw error text
// may be shown to the caller.
//
//	env, err := environment.Parse(os.Getenv("APP_ENV"))
//	if err != nil {
//		return err
//	}
//	r.Use(environment.Middleware(env))
package environment
