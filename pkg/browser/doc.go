// Package browser owns the browser process used to run workflows.
//
// A SessionManager launches the browser lazily through a Driver, keeps one
// retained session page, hands out fresh isolated pages on request, and
// relaunches the browser when it finds it disconnected. PlaywrightDriver is
// the production Driver; package browsertest provides a scripted fake.
package browser
