// Package docs holds the OpenAPI document served at /swagger/*any.
// Regenerate with: swag init -g cmd/server/main.go -o docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/": {
            "post": {
                "description": "Validates the address, lowercases it and stores it. Any case\nvariant of an already stored address is rejected.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Emails"],
                "summary": "Submit an email address",
                "operationId": "submitEmail",
                "parameters": [
                    {
                        "description": "Address to collect",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/handlers.SubmitEmailRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "Stored record", "schema": {"$ref": "#/definitions/domain.Email"}},
                    "400": {"description": "Invalid or duplicate address", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "415": {"description": "Body is not JSON", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/emails": {
            "get": {
                "description": "Returns the stored record whose name matches, ignoring case.",
                "produces": ["application/json"],
                "tags": ["Emails"],
                "summary": "Look up an email address",
                "operationId": "getEmail",
                "parameters": [
                    {
                        "type": "string",
                        "example": "user@example.com",
                        "description": "Address to look up",
                        "name": "name",
                        "in": "query",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {"description": "Stored record", "schema": {"$ref": "#/definitions/domain.Email"}},
                    "400": {"description": "Missing name parameter", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "422": {"description": "Address not stored", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.Email": {
            "type": "object",
            "properties": {
                "created_at": {"type": "string"},
                "id": {"type": "string"},
                "name": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"description": "HTTP status code", "type": "integer", "example": 400},
                "error": {"description": "Single failure description", "type": "string", "example": "Email with name 'user@example.com' already exists"},
                "errors": {"description": "Per-field failure descriptions", "type": "array", "items": {"type": "string"}, "example": ["email: must be a well-formed email address"]},
                "message": {"description": "Human-readable summary", "type": "string", "example": "Email with name 'user@example.com' already exists"},
                "request_id": {"description": "Correlates server logs and client errors", "type": "string", "example": "123e4567-e89b-12d3-a456-426614174000"},
                "time": {"description": "When the failure was handled (UTC)", "type": "string", "example": "2025-01-02T15:04:05Z"}
            }
        },
        "handlers.SubmitEmailRequest": {
            "type": "object",
            "required": ["email"],
            "properties": {
                "email": {"description": "Email is the address to collect. It must be well-formed.", "type": "string", "example": "User@Example.com"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Email Collector API",
	Description:      "Collects and validates email addresses. Every failure is answered with a uniform error envelope.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
