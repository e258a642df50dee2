// Package docs registra o documento Swagger do StockLedger.
// Regenerar com: swag init -g cmd/main.go -o docs
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
        "/stock/records": {
            "get": {"security": [{"ApiKeyAuth": []}], "tags": ["stock"], "summary": "Consulta o estoque de uma chave",
                "parameters": [
                    {"type": "string", "name": "product_id", "in": "query", "required": true},
                    {"type": "string", "name": "variant_id", "in": "query"},
                    {"type": "string", "name": "warehouse_id", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.StockLevel"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}}}},
            "post": {"security": [{"ApiKeyAuth": []}], "tags": ["stock"], "summary": "Cadastra um registro de estoque",
                "parameters": [{"name": "record", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.RegisterRecordRequest"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.StockLevel"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}}}}
        },
        "/stock/records/threshold": {
            "put": {"security": [{"ApiKeyAuth": []}], "tags": ["stock"], "summary": "Altera o limite de estoque baixo",
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}}}}
        },
        "/stock/changes": {
            "post": {"security": [{"ApiKeyAuth": []}], "tags": ["stock"], "summary": "Registra uma mudança de estoque",
                "parameters": [{"name": "change", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.StockChangeRequest"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.StockLedgerEntry"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}}}}
        },
        "/stock/changes/batch": {
            "post": {"security": [{"ApiKeyAuth": []}], "tags": ["stock"], "summary": "Aplica um lote de mudanças independentes",
                "responses": {"200": {"description": "OK"}, "422": {"description": "Nenhum item aplicado"}}}
        },
        "/stock/ledger": {
            "get": {"security": [{"ApiKeyAuth": []}], "tags": ["stock"], "summary": "Lista o ledger de uma chave",
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.StockLedgerEntry"}}}}}
        },
        "/stock/ledger/replay": {
            "get": {"security": [{"ApiKeyAuth": []}], "tags": ["stock"], "summary": "Audita o ledger de uma chave",
                "responses": {"200": {"description": "OK"}}}
        },
        "/reservations": {
            "get": {"security": [{"ApiKeyAuth": []}], "tags": ["reservations"], "summary": "Lista as reservas ativas de um pedido",
                "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"ApiKeyAuth": []}], "tags": ["reservations"], "summary": "Reserva estoque disponível para um pedido",
                "responses": {"201": {"description": "Created"}, "422": {"description": "Estoque disponível insuficiente", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}}}}
        },
        "/reservations/{id}": {
            "get": {"security": [{"ApiKeyAuth": []}], "tags": ["reservations"], "summary": "Obtém uma reserva",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/reservations/{id}/fulfill": {
            "post": {"security": [{"ApiKeyAuth": []}], "tags": ["reservations"], "summary": "Atende uma reserva",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Reserva em estado terminal"}}}
        },
        "/reservations/{id}/cancel": {
            "post": {"security": [{"ApiKeyAuth": []}], "tags": ["reservations"], "summary": "Cancela uma reserva ativa",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Reserva em estado terminal"}}}
        },
        "/transfers": {
            "post": {"security": [{"ApiKeyAuth": []}], "tags": ["transfers"], "summary": "Cria uma transferência entre armazéns",
                "responses": {"201": {"description": "Created"}, "422": {"description": "Disponível insuficiente na origem"}}}
        },
        "/transfers/{id}": {
            "get": {"security": [{"ApiKeyAuth": []}], "tags": ["transfers"], "summary": "Obtém uma transferência",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/transfers/{id}/approve": {
            "post": {"security": [{"ApiKeyAuth": []}], "tags": ["transfers"], "summary": "Aprova uma transferência pending",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Transição inválida"}, "422": {"description": "Estoque insuficiente"}}}
        },
        "/transfers/{id}/complete": {
            "post": {"security": [{"ApiKeyAuth": []}], "tags": ["transfers"], "summary": "Conclui uma transferência in_transit",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Transição inválida"}}}
        },
        "/transfers/{id}/cancel": {
            "post": {"security": [{"ApiKeyAuth": []}], "tags": ["transfers"], "summary": "Cancela uma transferência",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Transição inválida"}}}
        },
        "/alerts": {
            "get": {"security": [{"ApiKeyAuth": []}], "tags": ["alerts"], "summary": "Lista alertas de estoque",
                "responses": {"200": {"description": "OK"}}}
        },
        "/alerts/{id}/resolve": {
            "post": {"security": [{"ApiKeyAuth": []}], "tags": ["alerts"], "summary": "Resolve um alerta",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/warehouses": {
            "get": {"security": [{"ApiKeyAuth": []}], "tags": ["warehouses"], "summary": "Lista todos os armazéns",
                "responses": {"200": {"description": "Lista de armazéns"}}},
            "post": {"security": [{"ApiKeyAuth": []}], "tags": ["warehouses"], "summary": "Cria um novo armazém",
                "responses": {"201": {"description": "Armazém criado com sucesso"}, "409": {"description": "Nome já utilizado"}}}
        },
        "/warehouses/{id}": {
            "get": {"security": [{"ApiKeyAuth": []}], "tags": ["warehouses"], "summary": "Obtém um armazém por ID",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "Armazém encontrado"}, "404": {"description": "Armazém não encontrado"}}}
        }
    },
    "definitions": {
        "domain.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "integer", "example": 422},
                "category": {"type": "string", "example": "INSUFFICIENT_STOCK"},
                "message": {"type": "string"},
                "retryable": {"type": "boolean"}
            }
        },
        "domain.RegisterRecordRequest": {
            "type": "object",
            "properties": {
                "product_id": {"type": "string"},
                "variant_id": {"type": "string"},
                "warehouse_id": {"type": "string"},
                "low_stock_threshold": {"type": "integer"},
                "initial_quantity": {"type": "integer"}
            }
        },
        "domain.StockLevel": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "product_id": {"type": "string"},
                "variant_id": {"type": "string"},
                "warehouse_id": {"type": "string"},
                "quantity": {"type": "integer"},
                "low_stock_threshold": {"type": "integer"},
                "reserved": {"type": "integer"},
                "available": {"type": "integer"}
            }
        },
        "domain.StockChangeRequest": {
            "type": "object",
            "properties": {
                "product_id": {"type": "string"},
                "variant_id": {"type": "string"},
                "warehouse_id": {"type": "string"},
                "change_type": {"type": "string", "enum": ["restock", "sale", "adjustment", "return", "transfer"]},
                "delta": {"type": "integer"},
                "reason": {"type": "string"},
                "reference_id": {"type": "string"},
                "idempotency_key": {"type": "string"}
            }
        },
        "domain.StockLedgerEntry": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "product_id": {"type": "string"},
                "change_type": {"type": "string"},
                "quantity_delta": {"type": "integer"},
                "previous_quantity": {"type": "integer"},
                "new_quantity": {"type": "integer"},
                "reason": {"type": "string"},
                "actor_id": {"type": "string"},
                "timestamp": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo contém as informações exportadas do documento Swagger.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/v1",
	Schemes:          []string{},
	Title:            "StockLedger API",
	Description:      "Ledger de estoque, reservas, transferências entre armazéns e alertas de estoque baixo.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
