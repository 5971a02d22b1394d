package notify

import "html/template"

var statusLabels = map[string]string{
	"verified":   "VERIFIED by authorities",
	"false":      "MARKED AS FALSE",
	"responding": "RESPONSE DISPATCHED",
	"resolved":   "ISSUE RESOLVED",
}

func statusLabel(status string) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return status
}

var statusMailTemplate = template.Must(template.New("status").Parse(`<p>Hi <strong>{{.Name}}</strong>,</p>
<p>Your disaster report has been updated:</p>
<hr />
<p><strong>Status:</strong> {{.Status}}</p>
<p><strong>Reported On:</strong> {{.ReportedOn}}</p>
{{if .Location}}<p><strong>Location:</strong> {{.Location}}</p>{{end}}
<p><strong>AI Classification:</strong> {{.Category}}</p>
<p><strong>Severity Level:</strong> {{.Severity}}</p>
{{if .ImageUrl}}<p><strong>Image Evidence:</strong><br/><a href="{{.ImageUrl}}" target="_blank">View Uploaded Image</a></p>{{end}}
{{if .Note}}<p><strong>Authority Note:</strong> {{.Note}}</p>{{end}}
<hr />
<p>Thank you for reporting responsibly. Your contribution helps authorities respond faster.</p>
<p><strong>Disaster Response Team</strong></p>
`))

var broadcastMailTemplate = template.Must(template.New("broadcast").Parse(`<div style="font-family: Arial, sans-serif; line-height: 1.6;">
<h2 style="color: #d32f2f;">New Disaster Report Submitted</h2>
<p>A <strong>new disaster report</strong> has been submitted and is <strong>pending verification</strong> by authorities.</p>
<table style="border-collapse: collapse;">
<tr><td><strong>Category:</strong></td><td>{{.Category}}</td></tr>
<tr><td><strong>Severity:</strong></td><td>{{.Severity}}</td></tr>
<tr><td><strong>Location:</strong></td><td>{{or .Location "N/A"}}</td></tr>
<tr><td><strong>Reported At:</strong></td><td>{{.ReportedOn}}</td></tr>
</table>
<p><strong>Additional Notes:</strong></p>
<p>{{or .Note "No additional notes provided."}}</p>
<hr />
<p>Please log in to the <strong>Disaster-Watch Government Dashboard</strong> to review the report, verify the attached image, and take necessary action.</p>
<p style="font-size: 12px; color: #666;">This is an automated notification. Please do not reply to this email.</p>
</div>
`))

var contactMailTemplate = template.Must(template.New("contact").Parse(`<h2>New Organization Registered</h2>
<p><strong>Organization:</strong> {{.OrgName}}</p>
<p><strong>Type:</strong> {{or .OrgType "N/A"}}</p>
<p><strong>Email:</strong> {{.Email}}</p>
<p><strong>Website:</strong> {{.Website}}</p>
<p><strong>Contact Person:</strong> {{.ContactPerson}}</p>
<p><strong>Phone:</strong> {{or .Phone "N/A"}}</p>
<p><strong>Purpose:</strong> {{or .Purpose "N/A"}}</p>
{{if .RegistrationFile}}<p><a href="{{.RegistrationFile}}" target="_blank">View Registration Document</a></p>{{end}}
`))

type reportMailData struct {
	Name       string
	Status     string
	ReportedOn string
	Location   string
	Category   string
	Severity   string
	ImageUrl   string
	Note       string
}
