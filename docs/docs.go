// Package docs registers the OpenAPI document served under /swagger. Keep it
// in step with the handler annotations (swag init -g cmd/vivulocal-api/main.go).
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/auth/register": {
            "post": {"tags": ["auth"], "summary": "Register with email and password", "consumes": ["application/json"], "produces": ["application/json"],
                "responses": {"201": {"description": "Created"}, "409": {"description": "Email already registered"}, "422": {"description": "Validation failed"}}}
        },
        "/auth/login": {
            "post": {"tags": ["auth"], "summary": "Sign in with email and password", "consumes": ["application/json"], "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}, "401": {"description": "Invalid credentials"}, "403": {"description": "Account banned"}, "429": {"description": "Too many attempts"}}}
        },
        "/auth/oauth/google": {
            "get": {"tags": ["auth"], "summary": "Start Google sign-in", "responses": {"307": {"description": "Redirect to consent screen"}}}
        },
        "/auth/oauth/google/callback": {
            "get": {"tags": ["auth"], "summary": "Finish Google sign-in", "responses": {"307": {"description": "Redirect to the frontend with a token"}}}
        },
        "/v1/me": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["profile"], "summary": "Current identity", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}},
            "patch": {"security": [{"BearerAuth": []}], "tags": ["profile"], "summary": "Edit own profile", "consumes": ["application/json"], "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "422": {"description": "Validation failed"}}}
        },
        "/v1/requests": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["requests"], "summary": "Submit an approval request", "consumes": ["application/json"], "produces": ["application/json"],
                "responses": {"201": {"description": "Created"}, "409": {"description": "A pending request already exists"}, "422": {"description": "Validation failed"}}}
        },
        "/v1/requests/mine": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["requests"], "summary": "My approval requests", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}
        },
        "/v1/admin/requests": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "List approval requests", "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "status", "in": "query"}, {"type": "string", "name": "type", "in": "query"}],
                "responses": {"200": {"description": "OK"}, "403": {"description": "Admins only"}}}
        },
        "/v1/admin/requests/{id}/decision": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "Decide an approval request", "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}, "409": {"description": "Already decided"}, "500": {"description": "Partial write, retry the same decision"}}}
        },
        "/v1/admin/users/{id}/ban": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "Ban an identity", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/v1/admin/users/{id}/unban": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "Lift a ban", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/v1/live": {
            "get": {"tags": ["live"], "summary": "Live page view", "produces": ["text/event-stream"],
                "parameters": [{"type": "string", "name": "route", "in": "query", "required": true}], "responses": {"200": {"description": "Stream of view events"}}}
        },
        "/v1/navigation": {
            "get": {"tags": ["live"], "summary": "Evaluate a route", "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "route", "in": "query", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/v1/uploads": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["uploads"], "summary": "Upload an image or document", "consumes": ["multipart/form-data"], "produces": ["application/json"],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Rejected file"}, "502": {"description": "Storage unavailable"}}}
        },
        "/v1/assistant/chat": {
            "post": {"tags": ["assistant"], "summary": "Ask the travel assistant", "consumes": ["application/json"], "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}, "429": {"description": "Every model is out of quota"}}}
        },
        "/health": {"get": {"tags": ["health"], "summary": "Liveness", "responses": {"200": {"description": "OK"}}}},
        "/health/ready": {"get": {"tags": ["health"], "summary": "Readiness", "responses": {"200": {"description": "OK"}, "503": {"description": "Degraded"}}}}
    },
    "securityDefinitions": {
        "BearerAuth": {"description": "Type \"Bearer\" followed by a space and JWT token.", "type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "ViVuLocal Marketplace API",
	Description:      "Accounts, buddy/partner approval and live page guards for ViVuLocal.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
