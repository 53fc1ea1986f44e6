package clientdist

import _ "embed"

// IndexHTML is the editor page. It is served at "/".
//
//go:embed index.html
var IndexHTML []byte

// HashpadJS is the browser client. It is served at "/_hashpad/client.js".
//
//go:embed hashpad.js
var HashpadJS []byte
