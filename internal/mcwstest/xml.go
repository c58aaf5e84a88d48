package mcwstest

import (
	"encoding/xml"
	"strings"
)

// Item is one named value in a flat MCWS response or an MPL file.
type Item struct {
	Name  string
	Value string
}

// FieldDef is one entry of a Library/Fields catalogue.
type FieldDef struct {
	Name       string
	DataType   string
	EditType   string
	Expression string
}

// Response renders <Response Status=..><Item Name=..>..</Item></Response>.
func Response(status string, items ...Item) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes" ?>`)
	b.WriteString(`<Response Status="` + escape(status) + `">`)
	for _, item := range items {
		b.WriteString(`<Item Name="` + escape(item.Name) + `">` + escape(item.Value) + `</Item>`)
	}
	b.WriteString(`</Response>`)
	return b.String()
}

// Failure renders a Status="Failure" response.
func Failure(information string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes" ?><Response Status="Failure" Information="` +
		escape(information) + `"/>`
}

// Fields renders a Library/Fields catalogue.
func Fields(defs ...FieldDef) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes" ?>`)
	b.WriteString(`<Response Status="OK">`)
	for _, def := range defs {
		editType := def.EditType
		if editType == "" {
			editType = "Standard"
		}
		b.WriteString(`<Field Name="` + escape(def.Name) + `" DataType="` + escape(def.DataType) +
			`" EditType="` + escape(editType) + `" DisplayName="` + escape(def.Name) + `"`)
		if def.Expression != "" {
			b.WriteString(` Expression="` + escape(def.Expression) + `"`)
		}
		b.WriteString(`/>`)
	}
	b.WriteString(`</Response>`)
	return b.String()
}

// MPL renders a media playlist with one <Item> per file.
func MPL(files ...[]Item) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes" ?>`)
	b.WriteString(`<MPL Version="2.0" Title="MCWS - Files" PathSeparator="\">`)
	for _, file := range files {
		b.WriteString(`<Item>`)
		for _, field := range file {
			b.WriteString(`<Field Name="` + escape(field.Name) + `">` + escape(field.Value) + `</Field>`)
		}
		b.WriteString(`</Item>`)
	}
	b.WriteString(`</MPL>`)
	return b.String()
}

// LookupReply renders a successful key lookup answer.
func LookupReply(keyID, ip, port string, localIPs []string, httpsPort string, hardwareIDs []string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes" ?>`)
	b.WriteString(`<Response Status="OK">`)
	b.WriteString(`<keyid>` + escape(keyID) + `</keyid>`)
	b.WriteString(`<ip>` + escape(ip) + `</ip>`)
	b.WriteString(`<port>` + escape(port) + `</port>`)
	b.WriteString(`<localiplist>` + escape(strings.Join(localIPs, ",")) + `</localiplist>`)
	if httpsPort != "" {
		b.WriteString(`<https_port>` + escape(httpsPort) + `</https_port>`)
	}
	b.WriteString(`<macaddresslist>` + escape(strings.Join(hardwareIDs, ",")) + `</macaddresslist>`)
	b.WriteString(`</Response>`)
	return b.String()
}

// LookupError renders a rejected key lookup answer.
func LookupError(message string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes" ?><Response Status="Error"><msg>` +
		escape(message) + `</msg></Response>`
}

func escape(s string) string {
	var b strings.Builder
	if err := xml.EscapeText(&b, []byte(s)); err != nil {
		return s
	}
	return b.String()
}
