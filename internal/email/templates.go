package email

import (
	"bytes"
	"fmt"
	"html/template"
)

const ownerAlertTemplate = `{{define "email"}}<!DOCTYPE html>
<html lang="es">
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body style="font-family: Arial, sans-serif; color: #1f2937;">
  <h2>{{.Heading}}</h2>
  <table cellpadding="6">
    <tr><td><strong>Cliente</strong></td><td>{{.CustomerName}}</td></tr>
    <tr><td><strong>Teléfono</strong></td><td>{{.CustomerTel}}</td></tr>
    <tr><td><strong>Interés</strong></td><td>{{.Interest}}</td></tr>
    <tr><td><strong>Valor</strong></td><td>{{.Value}}</td></tr>
  </table>
  <p style="color: #6b7280;">La conversación quedó en manos de un asesor. Responde desde la consola.</p>
</body>
</html>{{end}}`

var ownerAlertTmpl = template.Must(template.New("owner_alert.html").Parse(ownerAlertTemplate))

type baseEmailData struct {
	Title   string
	Heading string
}

type ownerAlertEmailData struct {
	baseEmailData
	CustomerName string
	CustomerTel  string
	Interest     string
	Value        string
}

func renderOwnerAlert(alert OwnerAlert) (subject, content string, err error) {
	format := subjectSaleAlertFmt
	switch alert.Kind {
	case AlertAdvisor:
		format = subjectAdvisorAlertFmt
	case AlertReservation:
		format = subjectReservationAlertFmt
	}
	subject = fmt.Sprintf(format, alert.BusinessName)

	var buf bytes.Buffer
	err = ownerAlertTmpl.ExecuteTemplate(&buf, "email", ownerAlertEmailData{
		baseEmailData: baseEmailData{Title: subject, Heading: subject},
		CustomerName:  alert.CustomerName,
		CustomerTel:   alert.CustomerTel,
		Interest:      alert.Interest,
		Value:         alert.Value,
	})
	if err != nil {
		return "", "", fmt.Errorf("execute owner alert template: %w", err)
	}
	return subject, buf.String(), nil
}
