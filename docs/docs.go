// Package docs holds the OpenAPI document served at /swagger/doc.json.
// Regenerate with: swag init -g cmd/jarvis/main.go -d .,internal/transport/http
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
        "/capabilities": {
            "get": {
                "description": "Tells presentation clients which features this host can perform, so they can hide the rest.",
                "produces": ["application/json"],
                "tags": ["capabilities"],
                "summary": "Active capability profile",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/profile.Capabilities"}
                    }
                }
            }
        },
        "/command": {
            "post": {
                "description": "Accepts a JSON message (typed text or base64 audio) or raw WAV/MP3 bytes.\nThe utterance is classified and routed; narrations come back in order.",
                "consumes": ["application/json", "audio/wav", "audio/mpeg"],
                "produces": ["application/json"],
                "tags": ["command"],
                "summary": "Run one interaction",
                "parameters": [
                    {
                        "description": "Interaction (JSON). For raw audio, POST the bytes directly with the appropriate Content-Type.",
                        "name": "message",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/message.Message"}
                    },
                    {
                        "type": "string",
                        "description": "Sender identifier (raw audio uploads)",
                        "name": "X-Jarvis-Source",
                        "in": "header"
                    },
                    {
                        "type": "string",
                        "description": "none, text, audio or text+audio (raw audio uploads)",
                        "name": "X-Jarvis-Response-Mode",
                        "in": "header"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Narrations, links and speech",
                        "schema": {"$ref": "#/definitions/message.Response"}
                    },
                    "400": {
                        "description": "Invalid request body",
                        "schema": {"$ref": "#/definitions/message.Response"}
                    },
                    "500": {
                        "description": "Internal processing error",
                        "schema": {"$ref": "#/definitions/message.Response"}
                    }
                }
            }
        }
    },
    "definitions": {
        "message.Message": {
            "type": "object",
            "properties": {
                "audio": {"type": "array", "items": {"type": "integer"}},
                "content_type": {"type": "string"},
                "id": {"type": "string"},
                "notify": {"type": "array", "items": {"$ref": "#/definitions/message.Target"}},
                "response_mode": {"type": "string", "enum": ["none", "text", "audio", "text+audio"]},
                "source": {"type": "string"},
                "text": {"type": "string"},
                "timestamp": {"type": "string"}
            }
        },
        "message.Response": {
            "type": "object",
            "properties": {
                "diagnostics": {"type": "array", "items": {"type": "string"}},
                "error": {"type": "string"},
                "intent": {"type": "string"},
                "links": {"type": "array", "items": {"type": "string"}},
                "message_id": {"type": "string"},
                "narrations": {"type": "array", "items": {"type": "string"}},
                "notified_to": {"type": "array", "items": {"type": "string"}},
                "speech": {"type": "array", "items": {"$ref": "#/definitions/message.SpeechClip"}},
                "term": {"type": "string"},
                "transcript": {"type": "string"},
                "utterance": {"type": "string"}
            }
        },
        "message.SpeechClip": {
            "type": "object",
            "properties": {
                "audio": {"type": "string"},
                "content_type": {"type": "string"},
                "played_locally": {"type": "boolean"},
                "text": {"type": "string"}
            }
        },
        "message.Target": {
            "type": "object",
            "properties": {
                "endpoint": {"type": "string"},
                "protocol": {"type": "string"},
                "service_name": {"type": "string"}
            }
        },
        "profile.Capabilities": {
            "type": "object",
            "properties": {
                "keyboard_driver": {"type": "string"},
                "local_audio_playback": {"type": "boolean"},
                "local_automation": {"type": "boolean"},
                "local_speech_recognition": {"type": "boolean"},
                "mode": {"type": "string"},
                "platform": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Jarvis API",
	Description:      "Voice and text command router for a personal assistant.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
