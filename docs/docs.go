// Package docs registers the OpenAPI description served under /swagger.
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
        "/customers": {
            "post": {
                "security": [{"Bearer": []}],
                "tags": ["customers"],
                "summary": "Ingest customers",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/dto.IngestCustomersRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.IngestResponse"}}}
            }
        },
        "/customers/embeddings": {
            "post": {
                "security": [{"Bearer": []}],
                "tags": ["customers"],
                "summary": "Embed customers",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/transactions": {
            "post": {
                "security": [{"Bearer": []}],
                "tags": ["customers"],
                "summary": "Ingest transactions",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.IngestResponse"}}}
            }
        },
        "/matches": {
            "post": {
                "security": [{"Bearer": []}],
                "tags": ["matching"],
                "summary": "Find matching customers",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/dto.MatchRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/dto.MatchResponse"}}}}
            }
        },
        "/matches/batch": {
            "post": {
                "security": [{"Bearer": []}],
                "tags": ["matching"],
                "summary": "Match external identities",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/insights": {
            "get": {
                "security": [{"Bearer": []}],
                "tags": ["insights"],
                "summary": "List active insights",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/insights/generate": {
            "post": {
                "security": [{"Bearer": []}],
                "tags": ["insights"],
                "summary": "Generate insights",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/insights/consensus": {
            "post": {
                "security": [{"Bearer": []}],
                "tags": ["insights"],
                "summary": "Run multi-source consensus",
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
        "dto.IngestCustomersRequest": {
            "type": "object",
            "properties": {"customers": {"type": "array", "items": {"type": "object"}}}
        },
        "dto.IngestResponse": {
            "type": "object",
            "properties": {"stored": {"type": "integer"}}
        },
        "dto.MatchRequest": {
            "type": "object",
            "properties": {
                "given_name": {"type": "string"},
                "family_name": {"type": "string"},
                "email": {"type": "string"},
                "phone": {"type": "string"},
                "max_matches": {"type": "integer"}
            }
        },
        "dto.MatchResponse": {
            "type": "object",
            "properties": {
                "candidate_id": {"type": "string"},
                "similarity_score": {"type": "number"},
                "confidence_level": {"type": "string"},
                "match_reasons": {"type": "array", "items": {"type": "string"}}
            }
        }
    },
    "securityDefinitions": {
        "Bearer": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Keeper API",
	Description:      "Customer identity matching and revenue insights for service businesses",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
