package main

// General API documentation for swaggo. Run `swag init -g cmd/mlcshim/docs.go -o docs` to regenerate.
//
// @title           mlcshim API
// @version         1.0
// @description     OpenAI-compatible streaming chat completions backed by the MLC command-line chat binary.
//
// @contact.name   mlcshim maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
