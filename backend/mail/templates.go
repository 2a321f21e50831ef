package mail

import (
	"bytes"
	"fmt"
	"html/template"
)

const (
	SubjectOTP              = "Verification Email from StudyNotion"
	SubjectPaymentSuccess   = "Payment Received"
	SubjectPasswordUpdated  = "Password updated successfully"
	SubjectPasswordReset    = "Password Reset Link"
	SubjectContactReceived  = "Your Data send successfully"
	subjectEnrollmentFormat = "Successfully Enrolled into %s"
)

func SubjectCourseEnrollment(courseName string) string {
	return fmt.Sprintf(subjectEnrollmentFormat, courseName)
}

const layout = `{{define "layout"}}<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<title>{{.Title}}</title>
	<style>
		body { background-color: #ffffff; font-family: Arial, sans-serif; font-size: 16px; line-height: 1.4; color: #333333; margin: 0; padding: 0; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; text-align: center; }
		.message { font-size: 18px; font-weight: bold; margin-bottom: 20px; }
		.body { font-size: 16px; margin-bottom: 20px; }
		.cta { display: inline-block; padding: 10px 20px; background-color: #FFD60A; color: #000000; text-decoration: none; border-radius: 5px; font-size: 16px; font-weight: bold; margin-top: 20px; }
		.support { font-size: 14px; color: #999999; margin-top: 20px; }
		.highlight { font-weight: bold; }
	</style>
</head>
<body>
	<div class="container">
		<div class="message">{{.Title}}</div>
		<div class="body">{{template "content" .}}</div>
		<div class="support">If you have any questions or need assistance, please feel free to reach out to us at
			<a href="mailto:info@studynotion.com">info@studynotion.com</a>. We are here to help!</div>
	</div>
</body>
</html>{{end}}`

var templates = map[string]string{
	"otp": `{{define "content"}}
		<p>Dear User,</p>
		<p>Thank you for registering with StudyNotion. To complete your registration, please use the following OTP
			(One-Time Password) to verify your account:</p>
		<h2 class="highlight">{{.OTP}}</h2>
		<p>This OTP is valid for 5 minutes. If you did not request this verification, please disregard this email.
			Once your account is verified, you will have access to our platform and its features.</p>
	{{end}}`,
	"payment": `{{define "content"}}
		<p>Dear {{.Name}},</p>
		<p>We have received a payment of <span class="highlight">₹{{.Amount}}</span>.</p>
		<p>Your Payment ID is <b>{{.PaymentID}}</b></p>
		<p>Your Order ID is <b>{{.OrderID}}</b></p>
	{{end}}`,
	"enrollment": `{{define "content"}}
		<p>Dear {{.Name}},</p>
		<p>You have successfully registered for the course <span class="highlight">"{{.CourseName}}"</span>.
			We are excited to have you as a participant!</p>
		<p>Please log in to your learning dashboard to access the course materials and start your learning journey.</p>
		<a class="cta" href="{{.DashboardURL}}">Go to Dashboard</a>
	{{end}}`,
	"password-updated": `{{define "content"}}
		<p>Hey {{.Name}},</p>
		<p>Your password has been successfully updated for the email <span class="highlight">{{.Email}}</span>.</p>
		<p>If you did not request this password change, please contact us immediately to secure your account.</p>
	{{end}}`,
	"password-reset": `{{define "content"}}
		<p>Dear User,</p>
		<p>Use the link below to reset your password. The link expires in one hour.</p>
		<a class="cta" href="{{.URL}}">Reset Password</a>
	{{end}}`,
	"contact": `{{define "content"}}
		<p>Dear {{.FirstName}} {{.LastName}},</p>
		<p>Thank you for contacting us. We have received your message and will respond to you as soon as possible.</p>
		<p>Here are the details you provided:</p>
		<p>Name: {{.FirstName}} {{.LastName}}</p>
		<p>Email: {{.Email}}</p>
		<p>Phone Number: {{.CountryCode}} {{.PhoneNo}}</p>
		<p>Message: {{.Message}}</p>
		<p>We appreciate your interest and will get back to you shortly.</p>
	{{end}}`,
}

var titles = map[string]string{
	"otp":              "OTP Verification Email",
	"payment":          "Course Payment Confirmation",
	"enrollment":       "Course Registration Confirmation",
	"password-updated": "Password Update Confirmation",
	"password-reset":   "Password Reset",
	"contact":          "Contact Form Confirmation",
}

var parsed = mustParse()

func mustParse() map[string]*template.Template {
	out := make(map[string]*template.Template, len(templates))
	for name, content := range templates {
		t := template.Must(template.New(name).Parse(layout))
		out[name] = template.Must(t.Parse(content))
	}
	return out
}

func render(name string, data map[string]interface{}) (string, error) {
	t, ok := parsed[name]
	if !ok {
		return "", fmt.Errorf("unknown mail template %q", name)
	}
	data["Title"] = titles[name]

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", fmt.Errorf("render %s template: %w", name, err)
	}
	return buf.String(), nil
}

func OTPEmail(otp string) (string, error) {
	return render("otp", map[string]interface{}{"OTP": otp})
}

// PaymentSuccessEmail takes the amount in minor units and shows it in major units.
func PaymentSuccessEmail(name string, amountMinor int64, orderID, paymentID string) (string, error) {
	return render("payment", map[string]interface{}{
		"Name":      name,
		"Amount":    fmt.Sprintf("%.2f", float64(amountMinor)/100),
		"OrderID":   orderID,
		"PaymentID": paymentID,
	})
}

func CourseEnrollmentEmail(courseName, name, dashboardURL string) (string, error) {
	return render("enrollment", map[string]interface{}{
		"CourseName":   courseName,
		"Name":         name,
		"DashboardURL": dashboardURL,
	})
}

func PasswordUpdatedEmail(email, name string) (string, error) {
	return render("password-updated", map[string]interface{}{"Email": email, "Name": name})
}

func PasswordResetEmail(url string) (string, error) {
	return render("password-reset", map[string]interface{}{"URL": url})
}

type ContactDetails struct {
	Email       string
	FirstName   string
	LastName    string
	Message     string
	PhoneNo     string
	CountryCode string
}

func ContactResponseEmail(d ContactDetails) (string, error) {
	return render("contact", map[string]interface{}{
		"Email":       d.Email,
		"FirstName":   d.FirstName,
		"LastName":    d.LastName,
		"Message":     d.Message,
		"PhoneNo":     d.PhoneNo,
		"CountryCode": d.CountryCode,
	})
}
