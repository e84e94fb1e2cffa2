package mail

// Builtin bodies keyed by template file name. A deployment can override any
// of them by dropping a file with the same name into the templates dir.
var builtinTemplates = map[string]string{
	"forgot_password.html": `<html>
<body>
  <p>Hi {{.Name}},</p>
  <p>A password reset was requested for your {{.AppName}} account.</p>
  <p><a href="{{.ResetURL}}">Reset your password</a></p>
  <p>The link expires in {{.Expiry}}. If you did not request this, you can ignore this email.</p>
</body>
</html>
`,
	"reset_password.html": `<html>
<body>
  <p>Hi {{.Name}},</p>
  <p>Your {{.AppName}} password has been reset.</p>
  <p>Your new password is: <strong>{{.NewPassword}}</strong></p>
  <p>Please log in and change it as soon as possible.</p>
</body>
</html>
`,
}
