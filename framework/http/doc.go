// Package http provides the request, response and view helpers handed to
// controllers.
//
// # Request
//
// Request wraps *http.Request. Query, form and cookie values are stripped of
// HTML once, when the request is wrapped.
//
//	req := gohttp.NewRequest(r)
//
//	name := req.Input("name", "default") // body, then query
//	page := req.Query("page", "1")
//	all  := req.All()                    // map[string]string
//	id   := req.Param("id")              // route placeholder
//
//	var payload struct {
//	    Name string `json:"name"`
//	}
//	if err := req.Bind(&payload); err != nil { ... }
//
// # Response
//
// Response buffers the status, raw header lines and the body until Send.
//
//	res := gohttp.NewResponse()
//	res.AddHeader("X-Frame-Options: DENY")
//	res.SetCompression(6)
//	_ = res.SetOutput("<h1>Hello</h1>")
//	_ = res.Send(w, r.Header.Get("Accept-Encoding"))
//
//	res.Success(data)             // 200 {"data": ...}
//	res.Error(400, "bad input")   // {"message": "bad input"}
//	res.Redirect("/login", 302)
//
// # ViewEngine
//
//	engine := gohttp.NewViewEngine("./views")      // .html, then .tmpl
//	html, err := engine.Render("admin/dashboard", data)
//	html, err = engine.RenderWithLayout("layouts/app", "home", data)
package http
