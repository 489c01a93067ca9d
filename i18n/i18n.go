// Package i18n translates API error and violation codes. Portuguese is the
// default language; English is the only other bundled catalogue.
package i18n

import (
	"context"
	"strings"
)

const DefaultLang = "pt"

type langKey struct{}

var catalog = map[string]map[string]string{
	"pt": {
		"required":                     "Este campo é obrigatório.",
		"too_long":                     "Valor excede o tamanho máximo.",
		"invalid_email":                "Informe um endereço de email válido.",
		"invalid_choice":               "Escolha uma opção válida.",
		"must_not_be_negative":         "O valor não pode ser negativo.",
		"password_too_short":           "Esta senha é muito curta. Ela precisa conter pelo menos 8 caracteres.",
		"password_too_similar":         "A senha é muito parecida com seus dados pessoais.",
		"password_too_common":          "Esta senha é muito comum.",
		"password_entirely_numeric":    "Esta senha é inteiramente numérica.",
		"invalid_date":                 "Data inválida, use AAAA-MM-DD.",
		"superuser_staff":              "Superusuário deve ter is_staff=True.",
		"superuser_flag":               "Superusuário deve ter is_superuser=True.",
		"validation_failed":            "Dados inválidos.",
		"email_already_exists":         "Já existe um usuário com este email.",
		"invalid_credentials":          "Não é possível fazer login com as credenciais fornecidas.",
		"unauthorized":                 "As credenciais de autenticação não foram fornecidas.",
		"invalid_token":                "Token inválido ou expirado.",
		"forbidden":                    "Você não tem permissão para executar esta ação.",
		"not_found":                    "Não encontrado.",
		"does_not_exist":               "Objeto não existe.",
		"already_exists":               "Registro já existe.",
		"invalid_password":             "Senha inválida.",
		"name_already_exists":          "Já existe um perfil com este nome.",
		"profile_has_users":            "O perfil possui usuários atribuídos.",
		"cannot_delete_system_profile": "Perfis do sistema não podem ser excluídos.",
		"mail_failed":                  "Falha ao enviar email.",
		"invalid_json":                 "JSON inválido.",
		"internal_error":               "Erro interno do servidor.",
	},
	"en": {
		"required":                     "This field is required.",
		"too_long":                     "Value exceeds the maximum length.",
		"invalid_email":                "Enter a valid email address.",
		"invalid_choice":               "Select a valid choice.",
		"must_not_be_negative":         "Value must not be negative.",
		"password_too_short":           "This password is too short. It must contain at least 8 characters.",
		"password_too_similar":         "The password is too similar to your personal information.",
		"password_too_common":          "This password is too common.",
		"password_entirely_numeric":    "This password is entirely numeric.",
		"invalid_date":                 "Invalid date, use YYYY-MM-DD.",
		"superuser_staff":              "Superuser must have is_staff=True.",
		"superuser_flag":               "Superuser must have is_superuser=True.",
		"validation_failed":            "Validation failed.",
		"email_already_exists":         "A user with that email already exists.",
		"invalid_credentials":          "Unable to log in with provided credentials.",
		"unauthorized":                 "Authentication credentials were not provided.",
		"invalid_token":                "Invalid or expired token.",
		"forbidden":                    "You do not have permission to perform this action.",
		"not_found":                    "Not found.",
		"does_not_exist":               "Object does not exist.",
		"already_exists":               "Record already exists.",
		"invalid_password":             "Invalid password.",
		"name_already_exists":          "A profile with that name already exists.",
		"profile_has_users":            "The profile has assigned users.",
		"cannot_delete_system_profile": "System profiles cannot be deleted.",
		"mail_failed":                  "Failed to send email.",
		"invalid_json":                 "Invalid JSON.",
		"internal_error":               "Internal server error.",
	},
}

// DetectLanguage picks a supported language from an Accept-Language header.
func DetectLanguage(acceptLanguage string) string {
	for _, part := range strings.Split(acceptLanguage, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		base := strings.ToLower(strings.SplitN(tag, "-", 2)[0])
		if _, ok := catalog[base]; ok {
			return base
		}
	}
	return DefaultLang
}

// T translates code into lang, falling back to the default language and then
// to the code itself.
func T(lang, code string) string {
	if msgs, ok := catalog[lang]; ok {
		if msg, ok := msgs[code]; ok {
			return msg
		}
	}
	if msg, ok := catalog[DefaultLang][code]; ok {
		return msg
	}
	return code
}

// TranslateAll translates every value of a field→code map.
func TranslateAll(lang string, codes map[string]string) map[string]string {
	out := make(map[string]string, len(codes))
	for field, code := range codes {
		out[field] = T(lang, code)
	}
	return out
}

func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, langKey{}, lang)
}

func LangFromContext(ctx context.Context) string {
	if lang, ok := ctx.Value(langKey{}).(string); ok && lang != "" {
		return lang
	}
	return DefaultLang
}
