// Package docs registers the OpenAPI document served under /swagger.
//
// The handler annotations are the source of truth; regenerate this file
// with `swag init -g cmd/server/main.go --v3.1` after changing them.
package docs

import "github.com/swaggo/swag/v2"

const docTemplate = `{
    "openapi": "3.1.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{escape .Description}}",
        "version": "{{.Version}}"
    },
    "servers": [
        {"url": "{{.BasePath}}"}
    ],
    "components": {
        "securitySchemes": {
            "SessionCookie": {"type": "apiKey", "in": "cookie", "name": "flowdesk_session"},
            "CSRFToken": {"type": "apiKey", "in": "header", "name": "X-CSRF-Token"}
        }
    },
    "paths": {}
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Flowdesk API",
	Description:      "Multi-tenant workspace backend: accounts, tenants, roles, pipelines, files and billing.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
