// internal/format/templates.go
package format

import "strings"

// Subject is the fixed subject line for myADS notification emails.
const Subject = "myADS Notification"

// plainEnvelope wraps the plain-text payload fragment.
const plainEnvelope = `SAO/NASA ADS: myADS Personal Notification Service Results

{{payload}}
`

// htmlEnvelope wraps the HTML payload fragment in the full email document.
const htmlEnvelope = `<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Transitional//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-transitional.dtd">
<html>
    <head>
        <meta name="viewport" content="width=device-width">
        <meta http-equiv="Content-Type" content="text/html charset=UTF-8" />
        <style type="text/css">
            @media only screen and (max-width: 480px){
                #templateColumns{
                    width:100% !important;
                }

                .templateColumnContainer{
                    display:block !important;
                    width:100% !important;
                }

                .columnContent{
                    font-size:16px !important;
                    line-height:125% !important;
                }

                .leftColumnContent{
                    font-size:16px !important;
                    line-height:125% !important;
                }

                .rightColumnContent{
                    font-size:16px !important;
                    line-height:125% !important;
                }
            }
        </style>
    </head>
    <body>
        <table border="0" cellpadding="0" cellspacing="0" height="100%" width="100%" id="bodyTable" style="background-color: #E0E0E0;">
            <tr>
                <td align="center" valign="top">
                    <table border="0" cellpadding="10" cellspacing="0" width="600" id="emailContainer">
                        <tr>
                            <td align="center" valign="top" style="font-family:Helvetica;">
                                <table border="0" cellpadding="20" cellspacing="0" width="100%" id="emailBody" style="background-color: #ffffff; border: 1px solid #BBBBBB;border-collapse: collapse !important;">
                                    <tr>
                                        <td align="center" valign="top" background="https://ui.adsabs.harvard.edu/styles/img/background.jpg" style="width:100%; background-color: #150E35">
                                            <img src="https://ui.adsabs.harvard.edu/styles/img/ads_logo.png" alt="Astrophysics Data System" style="width: 70%; color: #ffffff; font-size: 34px; font-family: Helvetica;"/>
                                        </td>
                                    </tr>
                                    <tr>
                                        <td align="center" valign="top" style="width:100%; background-color: #ffffff;">
                                            <h2 style="margin: 0 0 10px 0;"> myADS Personal Notification Service </h2>
                                            <h3 style="margin: 0 0 10px 0;"> {{heading}} </h3>
                                            <h3 style="margin: 0 0 10px 0;"> {{date}} </h3>
                                        </td>
                                    </tr>
                                    <tr>
                                        <table border="0" cellpadding="0" cellspacing="0" width="100%" id="templateColumns" style="background-color: #FFFFFF; border-top: 1px solid #FFFFFF;border-bottom: 1px solid #CCCCCC; border: 1px solid #BBBBBB;border-collapse: collapse !important;">
                                            <tr>
                                                {{payload}}
                                            </tr>
                                        </table>
                                    </tr>
                                    <tr>
                                        <td valign="top" align="center" class="footerContent" style="width:100%; font-size: 14px; font-family:Helvetica; color: #606060; text-align: center;">
                                            <a href="https://ui.adsabs.harvard.edu/" style="color: #606060;">Search ADS</a>&nbsp;&nbsp;&nbsp;<a href="" style="color: #606060;">myADS settings</a>&nbsp;
                                        </td>
                                    </tr>
                                </table>
                            </td>
                        </tr>
                        <tr>
                            <td align="center" valign="top">
                                <table border="0" cellpadding="20" cellspacing="0" width="100%" id="emailFooter" style="color: #999999; font-size: 12px; text-align: center; font-family: Helvetica;">
                                    <tr>
                                        <td align="center" valign="top">
                                            <p> This message was sent to {{emailAddress}}. </p>
                                            <p> &copy; SAO/NASA <a href="https://ui.adsabs.harvard.edu">Astrophysics Data System</a> <br> 60 Garden Street <br> Cambridge, MA</p>
                                        </td>
                                    </tr>
                                </table>
                            </td>
                        </tr>
                    </table>
                </td>
            </tr>
        </table>
    </body>
</html>
`

// Envelope carries the rendered email bodies for one recipient.
type Envelope struct {
	Subject string
	Plain   string
	HTML    string
}

// RenderEmail wraps the payload fragments in the myADS email envelope.
// heading and date appear in the HTML header block; emailAddress appears in
// the footer.
func RenderEmail(plainPayload, htmlPayload, heading, date, emailAddress string) Envelope {
	plain := strings.ReplaceAll(plainEnvelope, "{{payload}}", plainPayload)

	html := htmlEnvelope
	html = strings.ReplaceAll(html, "{{payload}}", htmlPayload)
	html = strings.ReplaceAll(html, "{{heading}}", heading)
	html = strings.ReplaceAll(html, "{{date}}", date)
	html = strings.ReplaceAll(html, "{{emailAddress}}", emailAddress)

	return Envelope{
		Subject: Subject,
		Plain:   plain,
		HTML:    html,
	}
}
