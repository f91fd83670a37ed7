// Package docs holds the OpenAPI document served under /swagger/ when built with -tags=swagger.
// Regenerate with `swag init -g cmd/mlcshim/docs.go -o docs` after changing handler annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "mlcshim maintainers"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/v1/chat/completions": {
            "post": {
                "description": "Runs the inference CLI on the last message and streams the answer as server-sent events.\nEach frame is ` + "`" + `data: <chunk>` + "`" + `; the stream ends with ` + "`" + `data: [DONE]` + "`" + ` or a single ` + "`" + `{\"error\": ...}` + "`" + ` frame.",
                "consumes": ["application/json"],
                "produces": ["text/event-stream"],
                "tags": ["chat"],
                "summary": "Stream a chat completion",
                "parameters": [
                    {
                        "description": "Chat request",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/types.ChatCompletionRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ChatCompletionChunk"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "415": {"description": "Unsupported Media Type", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/v1/models": {
            "get": {
                "description": "Returns the single model served by the configured CLI.",
                "produces": ["application/json"],
                "tags": ["models"],
                "summary": "List models",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ModelsResponse"}}
                }
            }
        }
    },
    "definitions": {
        "types.ChatCompletionChunk": {
            "type": "object",
            "properties": {
                "choices": {"type": "array", "items": {"$ref": "#/definitions/types.ChunkChoice"}},
                "id": {"type": "string", "example": "chatcmpl-temp"},
                "model": {"type": "string", "example": "MLC_LLM_Model"},
                "object": {"type": "string", "example": "chat.completion.chunk"}
            }
        },
        "types.ChatCompletionRequest": {
            "type": "object",
            "properties": {
                "messages": {"type": "array", "items": {"$ref": "#/definitions/types.ChatMessage"}},
                "model": {"type": "string", "example": "MLC_LLM_Model"},
                "stream": {"type": "boolean", "example": true}
            }
        },
        "types.ChatMessage": {
            "type": "object",
            "properties": {
                "content": {"type": "string", "example": "Write a haiku about the ocean."},
                "role": {"type": "string", "example": "user"}
            }
        },
        "types.ChunkChoice": {
            "type": "object",
            "properties": {
                "delta": {"$ref": "#/definitions/types.ChunkDelta"},
                "finish_reason": {"type": "string"},
                "index": {"type": "integer"}
            }
        },
        "types.ChunkDelta": {
            "type": "object",
            "properties": {
                "content": {"type": "string"}
            }
        },
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "integer", "example": 400},
                "error": {"type": "string", "example": "invalid JSON body"}
            }
        },
        "types.ModelInfo": {
            "type": "object",
            "properties": {
                "id": {"type": "string", "example": "MLC_LLM_Model"},
                "object": {"type": "string", "example": "model"}
            }
        },
        "types.ModelsResponse": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"$ref": "#/definitions/types.ModelInfo"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "mlcshim API",
	Description:      "OpenAI-compatible streaming chat completions backed by the MLC command-line chat binary.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
