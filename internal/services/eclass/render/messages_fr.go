package render

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.French

	message.SetString(lang, "eclass.layout.date", "02/01 à 15:04")
	message.SetString(lang, "eclass.duration.minutes", "%d min")
	message.SetString(lang, "eclass.duration.hours", "%d h")
	message.SetString(lang, "eclass.duration.hours_minutes", "%d h %02d")

	message.SetString(lang, "eclass.announcement.text", "%s Un nouveau cours a été plannifié ! Réagissez avec ✅ pour être notifié au début du cours.%s")
	message.SetString(lang, "eclass.announcement.place_alert", "\n:warning: Ce cours n'a pas lieu sur le serveur : %s.")
	message.SetString(lang, "eclass.embed.author", "Nouveau cours")
	message.SetString(lang, "eclass.embed.title", "%s : %s")
	message.SetString(lang, "eclass.embed.description", "Un cours de %s est prévu dans %s le %s.")
	message.SetString(lang, "eclass.embed.canceled", "Ce cours a été annulé.")
	message.SetString(lang, "eclass.embed.footer", "ID : %s")
	message.SetString(lang, "eclass.embed.date", "Date")
	message.SetString(lang, "eclass.embed.date_value", "%s - %s")
	message.SetString(lang, "eclass.embed.date_in_progress", "En cours (%s - %s)")
	message.SetString(lang, "eclass.embed.date_finished", "Terminé (%s - %s)")
	message.SetString(lang, "eclass.embed.duration", "Durée")
	message.SetString(lang, "eclass.embed.professor", "Professeur")
	message.SetString(lang, "eclass.embed.recorded", "Enregistré")
	message.SetString(lang, "eclass.embed.place", "Lieu")

	message.SetString(lang, "eclass.recorded.yes", "Oui")
	message.SetString(lang, "eclass.recorded.no", "Non")
	message.SetString(lang, "eclass.recorded.link", "<%s>")

	message.SetString(lang, "eclass.place.in_platform", "dans %s")
	message.SetString(lang, "eclass.place.in_platform_text", "dans %s")
	message.SetString(lang, "eclass.place.external_link", "en ligne sur %s")
	message.SetString(lang, "eclass.place.in_person", "en présentiel, %s")

	message.SetString(lang, "eclass.start.notification", "%s le cours commence !")
	message.SetString(lang, "eclass.start.title", "Le cours « %s » commence !")
	message.SetString(lang, "eclass.start.description", "%s démarre le cours %s. Suivez-le dans %s. %s")
	message.SetString(lang, "eclass.start.text_channel", "%s")
	message.SetString(lang, "eclass.start.all_channels", "%s et %s")
	message.SetString(lang, "eclass.start.recorded", "Ce cours est enregistré.")
	message.SetString(lang, "eclass.start.not_recorded", "Ce cours n'est pas enregistré.")

	message.SetString(lang, "eclass.record.link_announcement", "L'enregistrement du cours « %s » (%s) est disponible : %s")

	message.SetString(lang, "eclass.reminder.professor", "Ton cours « %s » commence à %s %s. %s")
	message.SetString(lang, "eclass.reminder.professor_recorded", "Pense à lancer l'enregistrement, puis à ajouter le lien avec l'identifiant %s.")
	message.SetString(lang, "eclass.reminder.professor_not_recorded", "Ce cours n'est pas enregistré.")
	message.SetString(lang, "eclass.reminder.channel", "%s le cours « %s » avec %s commence à %s %s !")
	message.SetString(lang, "eclass.reminder.subscriber", "Rappel : le cours « %s » (%s) commence à %s %s.")

	message.SetString(lang, "eclass.subscribed", "Tu recevras un rappel pour le cours « %s » du %s.")
	message.SetString(lang, "eclass.unsubscribed", "Tu ne recevras plus de rappel pour le cours « %s » du %s.")

	message.SetString(lang, "eclass.upcoming.header", "Calendrier des cours des 7 prochains jours pour %s\n\n")
	message.SetString(lang, "eclass.upcoming.none", "Aucun cours de prévu !")
	message.SetString(lang, "eclass.upcoming.line", "• %s-%s : %s %s (par %s) [%s]\n")

	message.SetString(lang, "error.UNKNOWN", "Une erreur est survenue. Réessaie plus tard.")
	message.SetString(lang, "error.INVALID_INPUT", "Certaines informations sont invalides.")
	message.SetString(lang, "error.UNAUTHORIZED", "Tu dois être connecté.")
	message.SetString(lang, "error.FORBIDDEN", "Seul le professeur ou le staff peut faire cela.")
	message.SetString(lang, "error.NOT_FOUND", "Aucun cours ne correspond à cet identifiant.")
	message.SetString(lang, "error.INTEGRITY_FAULT", "L'annonce du cours est introuvable. Le staff a été prévenu.")
	message.SetString(lang, "error.ECLASS_OUT_OF_HORIZON", "La date doit être dans le futur et dans les deux prochains mois.")
	message.SetString(lang, "error.ECLASS_SCHOOL_YEAR_OVERLAP", "Un autre cours est déjà prévu pour cette promotion à ce moment-là.")
	message.SetString(lang, "error.ECLASS_PROFESSOR_OVERLAP", "Tu as déjà un cours prévu à ce moment-là.")
	message.SetString(lang, "error.ECLASS_ALREADY_EXISTS", "Un cours avec la même matière, le même sujet et la même date existe déjà.")
	message.SetString(lang, "error.ECLASS_UNCONFIGURED_ROLE", "Aucun rôle n'est configuré pour cette promotion.")
	message.SetString(lang, "error.ECLASS_UNCONFIGURED_CHANNEL", "Aucun salon d'annonces n'est configuré pour cette promotion.")
	message.SetString(lang, "error.ECLASS_INVALID_STATUS_TRANSITION", "Le cours ne peut pas passer à ce statut.")
	message.SetString(lang, "error.ECLASS_STATUS_DISALLOWS_OPERATION", "Le cours ne peut plus être modifié.")
}
