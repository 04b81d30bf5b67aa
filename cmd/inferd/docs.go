package main

// General API documentation for swaggo. Regenerate with `swag init`.
//
// @title           inferd API
// @version         1.0
// @description     HTTP API for local LLM generation lifecycle management.
//
// @contact.name   inferd maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
