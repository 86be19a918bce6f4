// Package docs registers the OpenAPI description served under /swagger.
// Regenerate with: swag init -g cmd/api/main.go
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
        "/auth/login": {"post": {"tags": ["Auth"], "summary": "Log in", "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}},
        "/auth/me": {"get": {"security": [{"BearerAuth": []}, {"ApiKeyAuth": []}], "tags": ["Auth"], "summary": "Get current tenant", "responses": {"200": {"description": "OK"}}}},
        "/offers": {
            "get": {"security": [{"BearerAuth": []}, {"ApiKeyAuth": []}], "tags": ["Offers"], "summary": "List offers", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}, {"ApiKeyAuth": []}], "tags": ["Offers"], "summary": "Create offer", "responses": {"201": {"description": "Created"}}}
        },
        "/offers/{id}": {
            "get": {"security": [{"BearerAuth": []}, {"ApiKeyAuth": []}], "tags": ["Offers"], "summary": "Get offer", "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}},
            "delete": {"security": [{"BearerAuth": []}, {"ApiKeyAuth": []}], "tags": ["Offers"], "summary": "Delete offer", "responses": {"204": {"description": "No Content"}, "409": {"description": "Conflict"}}}
        },
        "/offers/{id}/client": {"put": {"security": [{"BearerAuth": []}, {"ApiKeyAuth": []}], "tags": ["Offers"], "summary": "Update client details", "responses": {"200": {"description": "OK"}, "423": {"description": "Locked"}}}},
        "/offers/{id}/terms": {"put": {"security": [{"BearerAuth": []}, {"ApiKeyAuth": []}], "tags": ["Offers"], "summary": "Update offer terms", "responses": {"200": {"description": "OK"}, "423": {"description": "Locked"}}}},
        "/offers/{id}/items": {
            "post": {"security": [{"BearerAuth": []}, {"ApiKeyAuth": []}], "tags": ["Offers"], "summary": "Add item", "responses": {"201": {"description": "Created"}, "423": {"description": "Locked"}}},
            "delete": {"security": [{"BearerAuth": []}, {"ApiKeyAuth": []}], "tags": ["Offers"], "summary": "Clear items", "responses": {"200": {"description": "OK"}, "423": {"description": "Locked"}}}
        },
        "/offers/{id}/items/{itemId}": {"delete": {"security": [{"BearerAuth": []}, {"ApiKeyAuth": []}], "tags": ["Offers"], "summary": "Delete item", "responses": {"200": {"description": "OK"}, "423": {"description": "Locked"}}}},
        "/offers/{id}/mark-sent": {"post": {"security": [{"BearerAuth": []}, {"ApiKeyAuth": []}], "tags": ["Offers"], "summary": "Mark offer as sent", "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}},
        "/offers/{id}/accept": {"post": {"security": [{"BearerAuth": []}, {"ApiKeyAuth": []}], "tags": ["Offers"], "summary": "Accept offer", "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}},
        "/offers/{id}/unlock": {"post": {"security": [{"BearerAuth": []}, {"ApiKeyAuth": []}], "tags": ["Offers"], "summary": "Unlock accepted offer", "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}},
        "/offers/{id}/archive": {"post": {"security": [{"BearerAuth": []}, {"ApiKeyAuth": []}], "tags": ["Offers"], "summary": "Archive offer", "responses": {"200": {"description": "OK"}}}},
        "/offers/{id}/unarchive": {"post": {"security": [{"BearerAuth": []}, {"ApiKeyAuth": []}], "tags": ["Offers"], "summary": "Unarchive offer", "responses": {"200": {"description": "OK"}}}},
        "/offers/{id}/duplicate": {"post": {"security": [{"BearerAuth": []}, {"ApiKeyAuth": []}], "tags": ["Offers"], "summary": "Duplicate offer", "responses": {"201": {"description": "Created"}}}},
        "/offers/{id}/invoice": {"post": {"security": [{"BearerAuth": []}, {"ApiKeyAuth": []}], "tags": ["Invoices"], "summary": "Create invoice", "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}},
        "/offers/{id}/paid": {"put": {"security": [{"BearerAuth": []}, {"ApiKeyAuth": []}], "tags": ["Invoices"], "summary": "Set invoice payment", "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}},
        "/offers/{id}/portal-link": {"post": {"security": [{"BearerAuth": []}, {"ApiKeyAuth": []}], "tags": ["Offers"], "summary": "Portal links", "responses": {"200": {"description": "OK"}}}},
        "/offers/{id}/document": {"get": {"security": [{"BearerAuth": []}, {"ApiKeyAuth": []}], "tags": ["Offers"], "summary": "Render offer document", "responses": {"200": {"description": "OK"}}}},
        "/offers/{id}/send": {"post": {"security": [{"BearerAuth": []}, {"ApiKeyAuth": []}], "tags": ["Offers"], "summary": "Send offer by email", "responses": {"200": {"description": "OK"}}}},
        "/offers/{id}/history": {"get": {"security": [{"BearerAuth": []}, {"ApiKeyAuth": []}], "tags": ["Offers"], "summary": "Offer history", "responses": {"200": {"description": "OK"}}}},
        "/invoices": {"get": {"security": [{"BearerAuth": []}, {"ApiKeyAuth": []}], "tags": ["Invoices"], "summary": "List invoices", "responses": {"200": {"description": "OK"}}}},
        "/clients": {
            "get": {"security": [{"BearerAuth": []}, {"ApiKeyAuth": []}], "tags": ["Clients"], "summary": "List clients", "responses": {"200": {"description": "OK"}}},
            "put": {"security": [{"BearerAuth": []}, {"ApiKeyAuth": []}], "tags": ["Clients"], "summary": "Save client", "responses": {"200": {"description": "OK"}}}
        },
        "/clients/{id}": {
            "get": {"security": [{"BearerAuth": []}, {"ApiKeyAuth": []}], "tags": ["Clients"], "summary": "Get client", "responses": {"200": {"description": "OK"}}},
            "delete": {"security": [{"BearerAuth": []}, {"ApiKeyAuth": []}], "tags": ["Clients"], "summary": "Delete client", "responses": {"204": {"description": "No Content"}}}
        },
        "/audit": {"get": {"security": [{"BearerAuth": []}, {"ApiKeyAuth": []}], "tags": ["Audit"], "summary": "List audit logs", "responses": {"200": {"description": "OK"}}}},
        "/sequences": {"get": {"security": [{"BearerAuth": []}, {"ApiKeyAuth": []}], "tags": ["Sequences"], "summary": "List number sequences", "responses": {"200": {"description": "OK"}}}}
    },
    "securityDefinitions": {
        "ApiKeyAuth": {"type": "apiKey", "name": "X-API-Key", "in": "header"},
        "BearerAuth": {"description": "Type \"Bearer\" followed by a space and the access token.", "type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Offers API",
	Description:      "Offer lifecycle, numbering, invoicing and client portal API.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
